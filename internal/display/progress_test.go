package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressBarLifecycle(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "encode")
	bar.throttle = 0

	bar.Start(200)
	bar.Update(50, 200)
	bar.Update(40, 200) // stale counts are ignored
	assert.Equal(t, int64(50), bar.Current())

	bar.Update(200, 200)
	bar.Stop()
	bar.Stop()

	out := buf.String()
	assert.Contains(t, out, "encode")
	assert.Contains(t, out, "200/200")
	assert.True(t, strings.HasSuffix(out, "\n"), "Stop should end the line")

	bar.Update(300, 300)
	assert.Equal(t, int64(200), bar.Current(), "updates after Stop are ignored")
}

func TestProgressBarClampsToTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "encode")
	bar.Start(10)
	bar.Update(15, 10)
	assert.Equal(t, int64(10), bar.Current())
	bar.Stop()
}

func TestProgressBarIndeterminate(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "encode")
	bar.throttle = 0

	bar.Start(-1)
	bar.Update(25, -1)
	bar.Update(30, -1)
	bar.Stop()

	assert.Equal(t, int64(30), bar.Current())
	assert.NotEmpty(t, buf.String())
}

func TestProgressBarStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "encode")
	bar.Update(1, 1)
	bar.Stop()
	assert.Empty(t, buf.String())
}

func TestSummary(t *testing.T) {
	SetColor(false)

	var buf bytes.Buffer
	Summary(&buf, "/tmp/out.mkv", 0, 1440, 12340*time.Millisecond)
	assert.Equal(t, "✓ /tmp/out.mkv (1440 frames in 12.3s)\n", buf.String())

	buf.Reset()
	Summary(&buf, "/tmp/out.mkv", 1, 10, time.Second)
	assert.Equal(t, "✗ encode failed with exit code 1 after 1s\n", buf.String())
}
