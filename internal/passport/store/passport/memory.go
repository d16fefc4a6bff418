package passport

import (
	"context"
	"sync"

	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	"soulpass/pkg/platform/sentinel"
)

// InMemory keeps the ledger in process memory behind a single writer lock,
// which gives every operation the all-or-nothing execution and canonical
// ordering the ledger contract requires.
type InMemory struct {
	mu        sync.RWMutex
	passports map[id.TokenID]*models.Passport
	byOwner   map[id.Address]id.TokenID
	nextID    id.TokenID
}

// NewInMemory creates an empty in-memory store. Token ids start at 0.
func NewInMemory() *InMemory {
	return &InMemory{
		passports: make(map[id.TokenID]*models.Passport),
		byOwner:   make(map[id.Address]id.TokenID),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Passport) (id.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byOwner[p.Owner]; taken {
		return 0, sentinel.ErrConflict
	}

	tokenID := s.nextID
	s.nextID++

	cp := p.Clone()
	cp.ID = tokenID
	s.passports[tokenID] = cp
	s.byOwner[cp.Owner] = tokenID
	p.ID = tokenID
	return tokenID, nil
}

func (s *InMemory) FindByID(_ context.Context, tokenID id.TokenID) (*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.passports[tokenID]; ok {
		return p.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByOwner(_ context.Context, owner id.Address) (*models.Passport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tokenID, ok := s.byOwner[owner]; ok {
		return s.passports[tokenID].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Execute runs validate then mutate on a working copy under the write lock
// and swaps the copy in only on success, so a failed validation leaves the
// record byte-for-byte untouched.
func (s *InMemory) Execute(_ context.Context, tokenID id.TokenID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.passports[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := current.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)

	// Owner immutability is a store-level guarantee, not a convention.
	working.Owner = current.Owner
	working.ID = current.ID

	s.passports[tokenID] = working
	return working.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, tokenID id.TokenID, validate func(*models.Passport) error) (*models.Passport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.passports[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(current.Clone()); err != nil {
			return nil, err
		}
	}

	delete(s.passports, tokenID)
	delete(s.byOwner, current.Owner)
	return current, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passports), nil
}
