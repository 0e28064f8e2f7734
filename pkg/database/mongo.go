package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps each collection in a MongoDB collection of the same name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and verifies the server answers within timeout.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongodb url is not configured", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// NewMongoStore wraps an existing database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{client: db.Client(), db: db}
}

func (s *MongoStore) Backend() string { return BackendMongo }

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(collection + "_" + field + "_unique"),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("create unique index on %s.%s: %w", collection, field, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	err := c.coll.FindOne(ctx, filterDocument(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, out any, opts ...FindOption) error {
	o := buildFindOptions(opts)
	findOpts := options.Find()
	if o.skip > 0 {
		findOpts.SetSkip(o.skip)
	}
	if o.limit > 0 {
		findOpts.SetLimit(o.limit)
	}

	cursor, err := c.coll.Find(ctx, filterDocument(filter), findOpts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var records []bson.Raw
	for cursor.Next(ctx) {
		records = append(records, append(bson.Raw(nil), cursor.Current...))
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	return decodeAll(records, out)
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	d, id, err := toDocument(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := c.coll.InsertOne(ctx, d); err != nil {
		return "", translateMongoWrite(err)
	}
	return id, nil
}

// UpdateOne reports the matched count, not the server's modified count.
func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	p, err := patchDocument(patch)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	res, err := c.coll.UpdateOne(ctx, filterDocument(filter), bson.D{{Key: "$set", Value: p}})
	if err != nil {
		return 0, translateMongoWrite(err)
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filterDocument(filter))
	if err != nil {
		return 0, translateMongoWrite(err)
	}
	return res.DeletedCount, nil
}

func translateMongoWrite(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %v", ErrWrite, err)
}
