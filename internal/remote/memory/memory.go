// Package memory provides an in-process remote store, used as the default
// backend and in tests. It applies the same ownership and validation rules
// as the persistent adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	byID map[string]core.Transaction
}

func New() *Store {
	return &Store{byID: make(map[string]core.Transaction)}
}

// Seed inserts records directly, assigning ids to any that lack one.
// Intended for fixtures and local development data.
func (s *Store) Seed(items ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range items {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.byID[t.ID] = t
	}
}

func (s *Store) List(_ context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.byID {
		if t.OwnerID == ownerID && t.Kind == kind {
			out = append(out, t)
		}
	}
	core.SortByDateDesc(out)
	return out, nil
}

func (s *Store) Create(_ context.Context, draft core.Draft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, remote.Invalid("create", err)
	}
	t := core.Transaction{
		ID:       uuid.NewString(),
		OwnerID:  draft.OwnerID,
		Kind:     draft.Kind,
		Label:    draft.Label,
		Amount:   draft.Amount,
		Category: draft.Category,
		Date:     draft.Date,
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = t
	return t, nil
}

func (s *Store) Update(_ context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, remote.NotFound("update", id)
	}
	if t.OwnerID != ownerID {
		return core.Transaction{}, remote.Forbidden("update", id)
	}
	t = patch.Apply(t)
	if t.Amount.IsNegative() {
		return core.Transaction{}, remote.Invalid("update", core.ErrNegativeAmount)
	}
	s.byID[id] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, id string, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil // already gone
	}
	if t.OwnerID != ownerID {
		return remote.Forbidden("delete", id)
	}
	delete(s.byID, id)
	return nil
}

var _ remote.Client = (*Store)(nil)
