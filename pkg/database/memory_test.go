package database

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type widget struct {
	ID    string `bson:"_id,omitempty"`
	Name  string `bson:"name"`
	Color string `bson:"color"`
	Count int    `bson:"count"`
}

func seedWidgets(t *testing.T, c Collection, widgets ...widget) []string {
	t.Helper()
	ids := make([]string, 0, len(widgets))
	for _, w := range widgets {
		id, err := c.InsertOne(context.Background(), w)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestMemory_InsertAssignsIDAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")

	in := widget{Name: "bolt", Color: "red", Count: 3}
	id, err := c.InsertOne(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var got widget
	require.NoError(t, c.FindOne(ctx, Filter{IDField: id}, &got))
	in.ID = id
	assert.Equal(t, in, got)
}

func TestMemory_InsertKeepsProvidedID(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")

	id, err := c.InsertOne(ctx, widget{ID: "w-1", Name: "nut"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", id)

	_, err = c.InsertOne(ctx, widget{ID: "w-1", Name: "other"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemory_FindMatchesAllFilterKeysInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	seedWidgets(t, c,
		widget{Name: "a", Color: "red", Count: 1},
		widget{Name: "b", Color: "blue", Count: 1},
		widget{Name: "c", Color: "red", Count: 2},
		widget{Name: "d", Color: "red", Count: 1},
	)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter returns everything", Filter{}, []string{"a", "b", "c", "d"}},
		{"single key", Filter{"color": "red"}, []string{"a", "c", "d"}},
		{"conjunction", Filter{"color": "red", "count": 1}, []string{"a", "d"}},
		{"numeric width does not matter", Filter{"count": int64(2)}, []string{"c"}},
		{"missing field never equals a value", Filter{"shape": "round"}, []string{}},
		{"no match", Filter{"color": "green"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []widget
			require.NoError(t, c.Find(ctx, tt.filter, &got))
			names := make([]string, 0, len(got))
			for _, w := range got {
				names = append(names, w.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMemory_FindOneReturnsFirstMatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	seedWidgets(t, c, widget{Name: "first", Color: "red"}, widget{Name: "second", Color: "red"})

	var got widget
	require.NoError(t, c.FindOne(ctx, Filter{"color": "red"}, &got))
	assert.Equal(t, "first", got.Name)

	err := c.FindOne(ctx, Filter{"color": "green"}, &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_FindPagination(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	seedWidgets(t, c, widget{Name: "a"}, widget{Name: "b"}, widget{Name: "c"}, widget{Name: "d"})

	var page []widget
	require.NoError(t, c.Find(ctx, Filter{}, &page, WithSkip(1), WithLimit(2)))
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Name)
	assert.Equal(t, "c", page[1].Name)

	require.NoError(t, c.Find(ctx, Filter{}, &page, WithSkip(10)))
	assert.Empty(t, page)
	assert.NotNil(t, page)

	require.NoError(t, c.Find(ctx, Filter{}, &page, WithLimit(0)))
	assert.Len(t, page, 4)
}

func TestMemory_FindRequiresSlicePointer(t *testing.T) {
	c := NewMemoryStore().Collection("widgets")
	var w widget
	assert.Error(t, c.Find(context.Background(), Filter{}, &w))
}

func TestMemory_UpdateOneMergesWithoutClobbering(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("records")
	id, err := c.InsertOne(ctx, bson.M{"a": 0, "b": 2})
	require.NoError(t, err)

	n, err := c.UpdateOne(ctx, Filter{IDField: id}, Patch{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got bson.M
	require.NoError(t, c.FindOne(ctx, Filter{IDField: id}, &got))
	assert.EqualValues(t, 1, got["a"])
	assert.EqualValues(t, 2, got["b"])

	n, err = c.UpdateOne(ctx, Filter{IDField: id}, Patch{"c": "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, c.FindOne(ctx, Filter{IDField: id}, &got))
	assert.Equal(t, "new", got["c"])
	assert.EqualValues(t, 1, got["a"])
}

func TestMemory_UpdateOneTouchesOnlyFirstMatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	seedWidgets(t, c, widget{Name: "a", Color: "red"}, widget{Name: "b", Color: "red"})

	n, err := c.UpdateOne(ctx, Filter{"color": "red"}, Patch{"color": "blue"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var reds []widget
	require.NoError(t, c.Find(ctx, Filter{"color": "red"}, &reds))
	require.Len(t, reds, 1)
	assert.Equal(t, "b", reds[0].Name)

	n, err = c.UpdateOne(ctx, Filter{"color": "green"}, Patch{"color": "blue"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_UpdateOneRejectsIDChange(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	ids := seedWidgets(t, c, widget{Name: "a"})

	_, err := c.UpdateOne(ctx, Filter{IDField: ids[0]}, Patch{IDField: "other"})
	assert.ErrorIs(t, err, ErrWrite)
}

func TestMemory_DeleteOneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	ids := seedWidgets(t, c, widget{Name: "a"}, widget{Name: "b"})

	n, err := c.DeleteOne(ctx, Filter{IDField: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.DeleteOne(ctx, Filter{IDField: ids[0]})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.DeleteOne(ctx, Filter{IDField: "does-not-exist"})
	require.NoError(t, err)
	assert.Zero(t, n)

	var rest []widget
	require.NoError(t, c.Find(ctx, Filter{}, &rest))
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].Name)
}

func TestMemory_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureUniqueIndex(ctx, "users", "email"))
	require.NoError(t, s.EnsureUniqueIndex(ctx, "users", "email"))
	users := s.Collection("users")

	_, err := users.InsertOne(ctx, bson.M{"email": "a@x.com"})
	require.NoError(t, err)
	bID, err := users.InsertOne(ctx, bson.M{"email": "b@x.com"})
	require.NoError(t, err)

	_, err = users.InsertOne(ctx, bson.M{"email": "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = users.UpdateOne(ctx, Filter{IDField: bID}, Patch{"email": "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	n, err := users.UpdateOne(ctx, Filter{IDField: bID}, Patch{"email": "b@x.com", "full_name": "B"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the index only applies to its own collection
	_, err = s.Collection("contacts").InsertOne(ctx, bson.M{"email": "a@x.com"})
	assert.NoError(t, err)
}

func TestMemory_EnsureUniqueIndexFailsOnExistingDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := s.Collection("users")
	_, err := c.InsertOne(ctx, bson.M{"email": "a@x.com"})
	require.NoError(t, err)
	_, err = c.InsertOne(ctx, bson.M{"email": "a@x.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.EnsureUniqueIndex(ctx, "users", "email"), ErrDuplicateKey)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("widgets")
	ids := seedWidgets(t, c, widget{Name: "a"})

	var got widget
	require.NoError(t, c.FindOne(ctx, Filter{IDField: ids[0]}, &got))
	got.Name = "mutated"

	var again widget
	require.NoError(t, c.FindOne(ctx, Filter{IDField: ids[0]}, &again))
	assert.Equal(t, "a", again.Name)
}

func TestMemory_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := s.Collection("widgets")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := c.InsertOne(ctx, widget{Name: "w", Count: i})
			assert.NoError(t, err)
			_, err = c.UpdateOne(ctx, Filter{IDField: id}, Patch{"color": "red"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len("widgets"))
	var reds []widget
	require.NoError(t, c.Find(ctx, Filter{"color": "red"}, &reds))
	assert.Len(t, reds, 50)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewMemoryStore().Collection("widgets")

	_, err := c.InsertOne(ctx, widget{Name: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSharedMemoryStore_IsSingleInstance(t *testing.T) {
	assert.Same(t, SharedMemoryStore(), SharedMemoryStore())
}
