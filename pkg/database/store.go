// Package database provides the collection oriented record store used by the
// API. A Store is backed by MongoDB, by PostgreSQL JSONB rows through gorm, or
// by the process-wide in-memory fallback. All backends share the same
// contract: exact-equality conjunctive filters, top-level field merges on
// update, and at most one record touched by UpdateOne and DeleteOne.
package database

import (
	"context"
	"errors"
)

// Backend names reported by Store.Backend.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// IDField is the record key holding the record identifier.
const IDField = "_id"

var (
	// ErrNotFound is returned by FindOne when no record matches
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a write violates a unique index
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrWrite wraps failures to persist a record
	ErrWrite = errors.New("write failed")
	// ErrUnavailable is returned when the backend cannot be reached
	ErrUnavailable = errors.New("store unavailable")
)

// Filter selects records whose fields equal every value in the map.
// An empty filter matches every record.
type Filter map[string]any

// Patch lists top-level fields to overwrite on the matched record.
// Fields not named in the patch are left untouched.
type Patch map[string]any

// Collection is a named group of schema-less records.
type Collection interface {
	// FindOne decodes the first matching record into out.
	FindOne(ctx context.Context, filter Filter, out any) error
	// Find decodes every matching record into out, which must be a pointer to a slice.
	Find(ctx context.Context, filter Filter, out any, opts ...FindOption) error
	// InsertOne persists doc and returns its identifier, assigning one when doc has none.
	InsertOne(ctx context.Context, doc any) (string, error)
	// UpdateOne merges patch into the first matching record and reports 0 or 1.
	UpdateOne(ctx context.Context, filter Filter, patch Patch) (int64, error)
	// DeleteOne removes the first matching record and reports 0 or 1.
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections of one backend.
type Store interface {
	Backend() string
	Collection(name string) Collection
	Ping(ctx context.Context) error
	// EnsureUniqueIndex rejects writes that would give two records in collection the same value for field.
	EnsureUniqueIndex(ctx context.Context, collection, field string) error
	Close(ctx context.Context) error
}

// FindOption adjusts a Find call.
type FindOption func(*findOptions)

type findOptions struct {
	skip  int64
	limit int64
}

// WithSkip skips the first n matching records.
func WithSkip(n int64) FindOption {
	return func(o *findOptions) {
		if n > 0 {
			o.skip = n
		}
	}
}

// WithLimit returns at most n records. Zero or negative means no limit.
func WithLimit(n int64) FindOption {
	return func(o *findOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

func buildFindOptions(opts []FindOption) findOptions {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// window returns the [start, end) bounds of a page over total records.
func (o findOptions) window(total int) (int, int) {
	start := int(o.skip)
	if start > total {
		start = total
	}
	end := total
	if o.limit > 0 && start+int(o.limit) < end {
		end = start + int(o.limit)
	}
	return start, end
}
