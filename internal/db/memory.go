package db

import (
	"context"
	"sync"
	"time"

	"naturedex/internal/game"
)

var _ game.Store = (*MemoryStore)(nil)

// MemoryStore is a process-local store for tests and throwaway sessions.
type MemoryStore struct {
	mu    sync.Mutex
	chars map[string]game.Character
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chars: make(map[string]game.Character), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, ownerID string) (game.Character, error) {
	if err := ctx.Err(); err != nil {
		return game.Character{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chars[ownerID]
	if !ok {
		return game.Character{}, game.ErrCharacterNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) Insert(ctx context.Context, c game.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chars[c.OwnerID]; ok {
		return game.ErrDuplicateKey
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.chars[c.OwnerID] = clone(c)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, true)
}

func (s *MemoryStore) ReplaceFields(ctx context.Context, ownerID string, fields game.Fields) error {
	return s.update(ctx, ownerID, fields, false)
}

func (s *MemoryStore) update(ctx context.Context, ownerID string, fields game.Fields, increment bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chars[ownerID]
	if !ok {
		return game.ErrCharacterNotFound
	}
	c = clone(c)
	if increment {
		c.Increment(fields)
	} else {
		for f, v := range fields {
			c.SetField(f, v)
		}
	}
	c.UpdatedAt = s.now().UTC()
	s.chars[ownerID] = c
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chars[ownerID]; !ok {
		return false, nil
	}
	delete(s.chars, ownerID)
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chars)
}

func clone(c game.Character) game.Character {
	c.Stats = c.Stats.Clone()
	return c
}
