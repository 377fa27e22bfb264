package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ffjob/internal/job"
)

func jobDocument(output string) string {
	return fmt.Sprintf(`{
  "input_files": ["in.mkv"],
  "output_file": %q,
  "source_maps": [{"source": 0, "specifier": "v"}],
  "output_maps": [{"specifier": "v", "options": {"c": "copy"}}]
}`, output)
}

func writeJob(t *testing.T, path, output string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(jobDocument(output)), 0o644))
}

// newJobWatcher watches a fresh job file in a temp dir holding output.
func newJobWatcher(t *testing.T, output string, opts ...WatcherOption[*job.Job]) (*Watcher[*job.Job], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.json")
	writeJob(t, path, output)

	opts = append([]WatcherOption[*job.Job]{WithDebounce[*job.Job](50 * time.Millisecond)}, opts...)
	return NewConfigWatcher(path, job.Load, nil, opts...), path
}

func startWatcher(t *testing.T, w *Watcher[*job.Job]) {
	t.Helper()
	require.NoError(t, w.Start())
	t.Cleanup(func() { assert.NoError(t, w.Stop()) })
	// Give fsnotify time to register the directory watch.
	time.Sleep(100 * time.Millisecond)
}

func receiveJob(t *testing.T, ch <-chan *job.Job) *job.Job {
	t.Helper()
	select {
	case j := <-ch:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for job reload")
		return nil
	}
}

func TestJobWatcherReloadsOnWrite(t *testing.T) {
	w, path := newJobWatcher(t, "first.mkv")
	received := make(chan *job.Job, 4)
	w.OnReload(func(j *job.Job) { received <- j })
	startWatcher(t, w)

	writeJob(t, path, "second.mkv")
	assert.Equal(t, "second.mkv", receiveJob(t, received).OutputFile)

	// Each reload decodes the file again.
	time.Sleep(100 * time.Millisecond)
	writeJob(t, path, "third.mkv")
	assert.Equal(t, "third.mkv", receiveJob(t, received).OutputFile)
}

func TestJobWatcherSharesOneDecodePerChange(t *testing.T) {
	w, path := newJobWatcher(t, "first.mkv")

	var mu sync.Mutex
	var got []*job.Job
	for range 3 {
		w.OnReload(func(j *job.Job) {
			mu.Lock()
			got = append(got, j)
			mu.Unlock()
		})
	}
	startWatcher(t, w)

	writeJob(t, path, "shared.mkv")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, j := range got {
		assert.Same(t, got[0], j)
		assert.Equal(t, "shared.mkv", j.OutputFile)
	}
}

func TestJobWatcherUnsubscribe(t *testing.T) {
	w, path := newJobWatcher(t, "a.mkv")

	var kept, dropped atomic.Int32
	w.OnReload(func(*job.Job) { kept.Add(1) })
	unsub := w.OnReload(func(*job.Job) { dropped.Add(1) })
	startWatcher(t, w)

	writeJob(t, path, "b.mkv")
	require.Eventually(t, func() bool { return kept.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	unsub()

	writeJob(t, path, "c.mkv")
	require.Eventually(t, func() bool { return kept.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), dropped.Load())
}

func TestJobWatcherReportsSchemaErrors(t *testing.T) {
	errs := make(chan error, 1)
	w, path := newJobWatcher(t, "ok.mkv", WithErrorHandler[*job.Job](func(err error) { errs <- err }))
	received := make(chan *job.Job, 1)
	w.OnReload(func(j *job.Job) { received <- j })
	startWatcher(t, w)

	// Source 3 does not exist.
	broken := `{"input_files": ["in.mkv"], "output_file": "out.mkv", "source_maps": [{"source": 3}]}`
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	select {
	case err := <-errs:
		var schemaErr *job.SchemaError
		assert.True(t, errors.As(err, &schemaErr), "got %v", err)
	case <-received:
		t.Fatal("handlers must not see an invalid job")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestJobWatcherDebounce(t *testing.T) {
	w, path := newJobWatcher(t, "0.mkv", WithDebounce[*job.Job](200*time.Millisecond))

	var count atomic.Int32
	var last atomic.Value
	w.OnReload(func(j *job.Job) {
		count.Add(1)
		last.Store(j.OutputFile)
	})
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		writeJob(t, path, fmt.Sprintf("%d.mkv", i))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, "5.mkv", last.Load())
}

func TestJobWatcherConcurrentSubscribers(t *testing.T) {
	w, path := newJobWatcher(t, "x.mkv", WithDebounce[*job.Job](10*time.Millisecond))
	startWatcher(t, w)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(*job.Job) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 10 {
		writeJob(t, path, fmt.Sprintf("x%d.mkv", i))
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestJobWatcherStop(t *testing.T) {
	w, path := newJobWatcher(t, "a.mkv")
	var count atomic.Int32
	w.OnReload(func(*job.Job) { count.Add(1) })

	require.NoError(t, w.Start())
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())

	writeJob(t, path, "after-stop.mkv")
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, count.Load())
}

func TestJobWatcherInitialLoad(t *testing.T) {
	w, _ := newJobWatcher(t, "first.mkv", WithInitialLoad[*job.Job]())
	received := make(chan *job.Job, 1)
	w.OnReload(func(j *job.Job) { received <- j })
	startWatcher(t, w)

	select {
	case j := <-received:
		assert.Equal(t, "first.mkv", j.OutputFile)
	default:
		t.Fatal("Start should notify handlers synchronously with WithInitialLoad")
	}
}

func TestJobWatcherRenameReplace(t *testing.T) {
	w, path := newJobWatcher(t, "one.mkv")
	received := make(chan *job.Job, 4)
	w.OnReload(func(j *job.Job) { received <- j })
	startWatcher(t, w)

	dir := filepath.Dir(path)
	// Sibling files must not trigger reloads.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(jobDocument("other.mkv")), 0o644))

	tmp := filepath.Join(dir, ".job.json.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(jobDocument("two.mkv")), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	assert.Equal(t, "two.mkv", receiveJob(t, received).OutputFile)
	assert.Equal(t, path, w.Path())
}
