package prometheus

import (
	"context"
	"time"

	"github.com/tony-42069/abare-v2/pkg/database"
)

// InstrumentStore wraps s so every collection operation is observed in DBOperationDuration
func InstrumentStore(s database.Store) database.Store {
	return instrumentedStore{s}
}

type instrumentedStore struct {
	database.Store
}

func (s instrumentedStore) Collection(name string) database.Collection {
	return instrumentedCollection{s.Store.Collection(name)}
}

type instrumentedCollection struct {
	next database.Collection
}

func (c instrumentedCollection) FindOne(ctx context.Context, filter database.Filter, out any) error {
	defer TrackDBOperation("find_one")(time.Now())
	return c.next.FindOne(ctx, filter, out)
}

func (c instrumentedCollection) Find(ctx context.Context, filter database.Filter, out any, opts ...database.FindOption) error {
	defer TrackDBOperation("find")(time.Now())
	return c.next.Find(ctx, filter, out, opts...)
}

func (c instrumentedCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	defer TrackDBOperation("insert_one")(time.Now())
	return c.next.InsertOne(ctx, doc)
}

func (c instrumentedCollection) UpdateOne(ctx context.Context, filter database.Filter, patch database.Patch) (int64, error) {
	defer TrackDBOperation("update_one")(time.Now())
	return c.next.UpdateOne(ctx, filter, patch)
}

func (c instrumentedCollection) DeleteOne(ctx context.Context, filter database.Filter) (int64, error) {
	defer TrackDBOperation("delete_one")(time.Now())
	return c.next.DeleteOne(ctx, filter)
}
