package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const widgetsNS = "abare_db.widgets"

func TestMongoCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find one decodes the first record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, widgetsNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "w-1"}, {Key: "name", Value: "bolt"}, {Key: "color", Value: "red"}, {Key: "count", Value: 3}}))

		var got widget
		err := NewMongoStore(mt.DB).Collection("widgets").FindOne(context.Background(), Filter{IDField: "w-1"}, &got)
		require.NoError(mt, err)
		assert.Equal(mt, widget{ID: "w-1", Name: "bolt", Color: "red", Count: 3}, got)
	})

	mt.Run("find one maps no documents to not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, widgetsNS, mtest.FirstBatch))

		var got widget
		err := NewMongoStore(mt.DB).Collection("widgets").FindOne(context.Background(), Filter{"color": "green"}, &got)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find decodes every record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, widgetsNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "w-1"}, {Key: "name", Value: "a"}},
			bson.D{{Key: "_id", Value: "w-2"}, {Key: "name", Value: "b"}}))

		var got []widget
		err := NewMongoStore(mt.DB).Collection("widgets").Find(context.Background(), Filter{}, &got, WithLimit(10))
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "a", got[0].Name)
		assert.Equal(mt, "b", got[1].Name)
	})

	mt.Run("insert returns the assigned id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := NewMongoStore(mt.DB).Collection("widgets").InsertOne(context.Background(), widget{Name: "bolt"})
		require.NoError(mt, err)
		assert.NotEmpty(mt, id)
	})

	mt.Run("insert maps duplicate key errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := NewMongoStore(mt.DB).Collection("users").InsertOne(context.Background(), bson.M{"email": "a@x.com"})
		assert.ErrorIs(mt, err, ErrDuplicateKey)
	})

	mt.Run("update reports matched records", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		n, err := NewMongoStore(mt.DB).Collection("widgets").UpdateOne(context.Background(), Filter{IDField: "w-1"}, Patch{"color": "red"})
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)
	})

	mt.Run("update sends every filter predicate with the write", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		n, err := NewMongoStore(mt.DB).Collection("analyses").UpdateOne(context.Background(),
			Filter{IDField: "a-1", "status": "pending"}, Patch{"status": "completed"})
		require.NoError(mt, err)
		assert.Zero(mt, n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		status, err := started.Command.LookupErr("updates", "0", "q", "status")
		require.NoError(mt, err)
		assert.Equal(mt, "pending", status.StringValue())
	})

	mt.Run("delete of a missing record reports zero", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		n, err := NewMongoStore(mt.DB).Collection("widgets").DeleteOne(context.Background(), Filter{IDField: "missing"})
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})

	mt.Run("ensure unique index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := NewMongoStore(mt.DB).EnsureUniqueIndex(context.Background(), "users", "email")
		assert.NoError(mt, err)
	})

	mt.Run("ping", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		store := NewMongoStore(mt.DB)
		assert.Equal(mt, BackendMongo, store.Backend())
		assert.NoError(mt, store.Ping(context.Background()))
	})
}

func TestOpenMongo_RequiresURL(t *testing.T) {
	_, err := OpenMongo(context.Background(), "", "abare_db", 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}
