package logging

import (
	"strings"
	"sync"
)

// defaultCapacity is the number of log lines the ring buffer retains.
const defaultCapacity = 200

// RingWriter is a thread-safe writer keeping the last N written lines.
type RingWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
	cap   int
}

// GlobalLogCapture is the singleton instance for capturing logs.
var GlobalLogCapture = NewRingWriter(defaultCapacity)

// NewRingWriter creates a ring writer with the given line capacity.
func NewRingWriter(capacity int) *RingWriter {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RingWriter{
		lines: make([]string, capacity),
		cap:   capacity,
	}
}

// Write implements io.Writer. Each call is treated as one line.
func (w *RingWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next = (w.next + 1) % w.cap
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// Lines returns the captured lines, oldest first.
func (w *RingWriter) Lines() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []string
	if w.full {
		out = append(out, w.lines[w.next:]...)
	}
	out = append(out, w.lines[:w.next]...)
	return out
}

// LastLine returns the most recent log line, or empty string.
func (w *RingWriter) LastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	idx := w.next - 1
	if idx < 0 {
		if !w.full {
			return ""
		}
		idx = w.cap - 1
	}
	return w.lines[idx]
}
