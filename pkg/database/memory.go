package database

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore keeps every collection in process memory. Records live until the
// process exits and are never persisted. Collections are created on first use
// and keep insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]bson.Raw
	unique      map[string][]string
}

var (
	sharedMemory     *MemoryStore
	sharedMemoryOnce sync.Once
)

// SharedMemoryStore returns the process-wide fallback store, creating it on first use.
func SharedMemoryStore() *MemoryStore {
	sharedMemoryOnce.Do(func() {
		sharedMemory = NewMemoryStore()
	})
	return sharedMemory
}

// NewMemoryStore returns an empty, independent in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]bson.Raw),
		unique:      make(map[string][]string),
	}
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.unique[collection] {
		if f == field {
			return nil
		}
	}
	records := s.collections[collection]
	for i := range records {
		if s.conflictsLocked(collection, field, records[i], i) {
			return fmt.Errorf("%w: existing records share %s", ErrDuplicateKey, field)
		}
	}
	s.unique[collection] = append(s.unique[collection], field)
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

// Len returns the number of records in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// conflictsLocked reports whether another record than skip holds the same non-null value for field.
func (s *MemoryStore) conflictsLocked(collection, field string, record bson.Raw, skip int) bool {
	v, err := record.LookupErr(field)
	if err != nil || v.Type == bson.TypeNull {
		return false
	}
	for i, other := range s.collections[collection] {
		if i == skip {
			continue
		}
		ov, err := other.LookupErr(field)
		if err == nil && valuesEqual(v, ov) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) violatesUniqueLocked(collection string, record bson.Raw, skip int) (string, bool) {
	for _, field := range s.unique[collection] {
		if s.conflictsLocked(collection, field, record, skip) {
			return field, true
		}
	}
	return "", false
}

// indexOfLocked returns the position of the first record matching filter, or -1.
func (s *MemoryStore) indexOfLocked(collection string, filter bson.Raw) int {
	for i, record := range s.collections[collection] {
		if matches(record, filter) {
			return i
		}
	}
	return -1
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := bson.Marshal(filterDocument(filter))
	if err != nil {
		return fmt.Errorf("encode filter: %w", err)
	}

	c.store.mu.RLock()
	i := c.store.indexOfLocked(c.name, f)
	var record bson.Raw
	if i >= 0 {
		record = c.store.collections[c.name][i]
	}
	c.store.mu.RUnlock()

	if record == nil {
		return ErrNotFound
	}
	return bson.Unmarshal(record, out)
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter, out any, opts ...FindOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := bson.Marshal(filterDocument(filter))
	if err != nil {
		return fmt.Errorf("encode filter: %w", err)
	}

	c.store.mu.RLock()
	var found []bson.Raw
	for _, record := range c.store.collections[c.name] {
		if matches(record, f) {
			found = append(found, record)
		}
	}
	c.store.mu.RUnlock()

	start, end := buildFindOptions(opts).window(len(found))
	return decodeAll(found[start:end], out)
}

func (c *memoryCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d, id, err := toDocument(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	record, err := bson.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	idFilter, _ := bson.Marshal(bson.D{{Key: IDField, Value: id}})
	if c.store.indexOfLocked(c.name, idFilter) >= 0 {
		return "", fmt.Errorf("%w: %s %q", ErrDuplicateKey, IDField, id)
	}
	if field, dup := c.store.violatesUniqueLocked(c.name, record, -1); dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicateKey, field)
	}
	c.store.collections[c.name] = append(c.store.collections[c.name], record)
	return id, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := bson.Marshal(filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("encode filter: %w", err)
	}
	p, err := patchDocument(patch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	i := c.store.indexOfLocked(c.name, f)
	if i < 0 {
		return 0, nil
	}
	var current bson.D
	if err := bson.Unmarshal(c.store.collections[c.name][i], &current); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	updated, err := bson.Marshal(mergePatch(current, p))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if field, dup := c.store.violatesUniqueLocked(c.name, updated, i); dup {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, field)
	}
	c.store.collections[c.name][i] = updated
	return 1, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := bson.Marshal(filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("encode filter: %w", err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	i := c.store.indexOfLocked(c.name, f)
	if i < 0 {
		return 0, nil
	}
	records := c.store.collections[c.name]
	c.store.collections[c.name] = append(records[:i:i], records[i+1:]...)
	return 1, nil
}
