package process

import "sync"

const defaultTailLines = 20

// tailBuffer keeps the most recent lines of output.
type tailBuffer struct {
	lines []string
	size  int
	head  int
	count int
	mu    sync.Mutex
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = defaultTailLines
	}
	return &tailBuffer{lines: make([]string, size), size: size}
}

// Add appends a line, overwriting the oldest when full.
func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines[t.head] = line
	t.head = (t.head + 1) % t.size
	if t.count < t.size {
		t.count++
	}
}

// Lines returns the buffered lines oldest first.
func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return nil
	}
	out := make([]string, t.count)
	if t.count < t.size {
		copy(out, t.lines[:t.count])
		return out
	}
	n := copy(out, t.lines[t.head:])
	copy(out[n:], t.lines[:t.head])
	return out
}
