package storage

import (
	"context"
	"time"
)

// Change describes one mutation of a key. Present is false for deletions.
type Change struct {
	Seq     int64
	Key     string
	Value   string
	Present bool
	Origin  string
}

// Repository is the key/value contract shared by the token store and the
// result cache.
//
// Get returns ok=false for an absent key. SetMany and Delete apply all of their
// keys in a single transaction. Delete of an absent key is a no-op.
type Repository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error

	// Changes lists changes with Seq > afterSeq written by other origins,
	// oldest first.
	Changes(ctx context.Context, afterSeq int64) ([]Change, error)
	LastSeq(ctx context.Context) (int64, error)
	PruneChanges(ctx context.Context, before time.Time) error

	Origin() string
}
