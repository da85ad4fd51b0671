// Package tokenstore persists the bearer token and role in the shared KV
// storage and reports changes made to them by other client processes.
package tokenstore

import (
	"context"

	"github.com/dmitrijs2005/ace/internal/client/storage"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// Change is a foreign mutation of the token or the role slot.
// Present is false when the slot was removed.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Subscriber is the part of storage.Watcher the store depends on.
type Subscriber interface {
	Subscribe(fn func(storage.Change)) func()
}

// Store never returns storage errors. Reads that fail are treated as absent
// and writes that fail are dropped; both are logged.
type Store struct {
	repo   storage.Repository
	events Subscriber
	logger logging.Logger
}

func New(repo storage.Repository, events Subscriber, logger logging.Logger) *Store {
	return &Store{repo: repo, events: events, logger: logger.With("component", "tokenstore")}
}

// Get returns the persisted token. An empty value counts as absent.
func (s *Store) Get(ctx context.Context) (string, bool) {
	return s.read(ctx, common.KeyAuthToken)
}

// Role returns the persisted role. An empty value counts as absent.
func (s *Store) Role(ctx context.Context) (string, bool) {
	return s.read(ctx, common.KeyAuthRole)
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "token storage read failed", "key", key, "error", err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set writes both slots in one transaction. An empty role is stored as an
// empty value, which reads back as absent.
func (s *Store) Set(ctx context.Context, token, role string) {
	err := s.repo.SetMany(ctx, map[string]string{
		common.KeyAuthToken: token,
		common.KeyAuthRole:  role,
	})
	if err != nil {
		s.logger.Warn(ctx, "token storage write failed", "error", err)
	}
}

// Clear removes both slots. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) {
	if err := s.repo.Delete(ctx, common.KeyAuthToken, common.KeyAuthRole); err != nil {
		s.logger.Warn(ctx, "token storage clear failed", "error", err)
	}
}

// OnChange registers fn for token and role changes written by other
// processes. Changes to any other key are ignored.
func (s *Store) OnChange(fn func(Change)) func() {
	if s.events == nil {
		return func() {}
	}
	return s.events.Subscribe(func(c storage.Change) {
		if c.Key != common.KeyAuthToken && c.Key != common.KeyAuthRole {
			return
		}
		fn(Change{Key: c.Key, Value: c.Value, Present: c.Present && c.Value != ""})
	})
}
