package session

import (
	"context"
	"sync"
	"time"
)

type memorySlot struct {
	hash      [32]byte
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process Store for tests and single-node
// deployments.
type Memory struct {
	mu    sync.Mutex
	slots map[string]memorySlot
	now   func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		slots: make(map[string]memorySlot),
		now:   time.Now,
	}
}

func (m *Memory) liveLocked(accountID string) (memorySlot, bool) {
	slot, ok := m.slots[accountID]
	if !ok {
		return memorySlot{}, false
	}
	if m.now().After(slot.expiresAt) {
		delete(m.slots, accountID)
		return memorySlot{}, false
	}
	return slot, true
}

func (m *Memory) Get(_ context.Context, accountID string) ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.liveLocked(accountID)
	if !ok {
		return [32]byte{}, ErrNotFound
	}
	return slot.hash, nil
}

func (m *Memory) Replace(_ context.Context, accountID string, hash [32]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[accountID] = memorySlot{hash: hash, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) CompareAndSwap(_ context.Context, accountID string, provided, next [32]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.liveLocked(accountID)
	if !ok {
		return ErrNotFound
	}
	if slot.hash != provided {
		return ErrHashMismatch
	}
	m.slots[accountID] = memorySlot{hash: next, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Clear(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, accountID)
	return nil
}
