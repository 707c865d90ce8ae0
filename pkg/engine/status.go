package engine

import (
	"sync"

	"geoguidego/pkg/model"
)

// statusCell guards the status snapshot read by the API while the loop
// goroutine mutates it.
type statusCell struct {
	mu sync.RWMutex
	s  model.EngineStatus
}

func (c *statusCell) setRunning(v bool) {
	c.mu.Lock()
	c.s.Running = v
	c.mu.Unlock()
}

func (c *statusCell) setText(text string) {
	c.mu.Lock()
	c.s.StatusText = text
	c.mu.Unlock()
}

func (c *statusCell) update(fn func(*model.EngineStatus)) {
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

func (c *statusCell) snapshot() model.EngineStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}
