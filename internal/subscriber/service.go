// Package subscriber keeps the set of chats that receive the daily notification.
package subscriber

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Store persists the ordered subscriber list.
type Store interface {
	Load(ctx context.Context) ([]int64, error)
	Save(ctx context.Context, ids []int64) error
}

// Service owns an ordered set of chat ids. Membership changes are written
// through to the store; the in-memory set is rolled back if the write fails.
type Service struct {
	store  Store
	logger *slog.Logger

	mu    sync.RWMutex
	ids   []int64
	index map[int64]struct{}
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		index:  make(map[int64]struct{}),
	}
}

// Load replaces the in-memory set with the stored one. Duplicates keep their
// first position.
func (s *Service) Load(ctx context.Context) error {
	ids, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = s.ids[:0]
	s.index = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	s.logger.Info("subscribers loaded", "count", len(s.ids))
	return nil
}

// Add appends id. It reports false without writing when id is already subscribed.
func (s *Service) Add(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return false, nil
	}
	next := append(slices.Clone(s.ids), id)
	if err := s.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save subscribers: %w", err)
	}
	s.ids = next
	s.index[id] = struct{}{}
	s.logger.Info("subscriber added", "chat_id", id, "count", len(s.ids))
	return true, nil
}

// Remove deletes id. It reports false without writing when id is not subscribed.
func (s *Service) Remove(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return false, nil
	}
	next := slices.DeleteFunc(slices.Clone(s.ids), func(v int64) bool { return v == id })
	if err := s.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save subscribers: %w", err)
	}
	s.ids = next
	delete(s.index, id)
	s.logger.Info("subscriber removed", "chat_id", id, "count", len(s.ids))
	return true, nil
}

// Contains reports whether id is subscribed.
func (s *Service) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// List returns the subscribers in insertion order.
func (s *Service) List() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Len returns the number of subscribers.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
