package events

import (
	"context"
	"sync"

	id "soulpass/pkg/domain"
)

// InMemoryStore keeps events in process memory. It backs unit tests and the
// read-side explorer endpoints when no external sink is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	all     []Event
	byToken map[id.TokenID][]Event
}

// NewInMemoryStore creates an empty event store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byToken: make(map[id.TokenID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, event)
	s.byToken[event.TokenID] = append(s.byToken[event.TokenID], event)
	return nil
}

func (s *InMemoryStore) ListByToken(_ context.Context, tokenID id.TokenID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.byToken[tokenID]...), nil
}

// ListRecent returns the most recent events in emission order, newest last.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.all) {
		limit = len(s.all)
	}
	return append([]Event{}, s.all[len(s.all)-limit:]...), nil
}

// Clear resets the store. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = nil
	s.byToken = make(map[id.TokenID][]Event)
}
