package memory

import (
	"sync"

	"quiz-room-service/internal/app"
)

// ConnIndex is an in-memory implementation of app.ConnIndex.
type ConnIndex struct {
	mu       sync.RWMutex
	bindings map[string]app.Binding
}

func NewConnIndex() *ConnIndex {
	return &ConnIndex{
		bindings: make(map[string]app.Binding),
	}
}

func (c *ConnIndex) Bind(connID string, binding app.Binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[connID] = binding
}

func (c *ConnIndex) Resolve(connID string) (app.Binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	binding, ok := c.bindings[connID]
	return binding, ok
}

func (c *ConnIndex) Unbind(connID string) (app.Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	binding, ok := c.bindings[connID]
	if ok {
		delete(c.bindings, connID)
	}
	return binding, ok
}

func (c *ConnIndex) UnbindRoom(roomCode string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var connIDs []string
	for connID, binding := range c.bindings {
		if binding.RoomCode == roomCode {
			delete(c.bindings, connID)
			connIDs = append(connIDs, connID)
		}
	}
	return connIDs
}
