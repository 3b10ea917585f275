package paygate

import "sync"

// Entry tracks the payment state for one requester identity.
// All amounts are in USDT minor units (6 decimals).
type Entry struct {
	Paid          bool
	AmountPaid    int64
	ConfirmedAt   int64 // unix seconds, 0 = not confirmed yet
	PendingAction string
	TestMode      bool
}

// Store is the identity -> entry state store behind the gate.
// Implementations must treat Set as last-write-wins and Delete as a no-op
// when the identity is absent.
type Store interface {
	Get(identity string) (Entry, bool)
	Set(identity string, e Entry)
	Delete(identity string)
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Get(identity string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[identity]
	return e, ok
}

func (s *MemoryStore) Set(identity string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[identity] = e
}

func (s *MemoryStore) Delete(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identity)
}
