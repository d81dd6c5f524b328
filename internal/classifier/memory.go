package classifier

import (
	"context"
	"sync"
)

// Memory records classification requests for inspection in tests.
type Memory struct {
	mu      sync.RWMutex
	siteIDs []string
}

// NewMemory returns an empty in-memory classifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Classify records the site ID.
func (m *Memory) Classify(_ context.Context, siteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.siteIDs = append(m.siteIDs, siteID)
	return nil
}

// Requests returns the recorded site IDs in call order.
func (m *Memory) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.siteIDs))
	copy(out, m.siteIDs)
	return out
}
