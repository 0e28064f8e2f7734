package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
)

func newStore(t *testing.T) *database.MemoryStore {
	t.Helper()
	store := database.NewMemoryStore()
	require.NoError(t, store.EnsureUniqueIndex(context.Background(), usersCollection, "email"))
	return store
}

func newAuth(t *testing.T, store database.Store) *AuthService {
	t.Helper()
	tokens, err := jwtutil.New(jwtutil.Config{SigningKey: "test-secret", Algorithm: "HS256", Expiration: time.Hour})
	require.NoError(t, err)
	return NewAuthService(store, tokens, bcrypt.MinCost)
}

func registerUser(t *testing.T, store database.Store, email string) *model.User {
	t.Helper()
	user, err := newAuth(t, store).Register(context.Background(), model.UserCreate{
		Email:    email,
		Password: "Secret123",
		FullName: "Test User",
	})
	require.NoError(t, err)
	return user
}

func createProperty(t *testing.T, store database.Store, metrics *model.FinancialMetrics, totalSF *float64) *model.Property {
	t.Helper()
	property, err := NewPropertyService(store).Create(context.Background(), model.PropertyCreate{
		Name:             "Office Park",
		PropertyType:     "office",
		TotalSF:          totalSF,
		Address:          model.Address{Street: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701"},
		FinancialMetrics: metrics,
	})
	require.NoError(t, err)
	return property
}

func ptr[T any](v T) *T { return &v }

// failingInserts makes InsertOne fail on one collection of the wrapped store.
type failingInserts struct {
	database.Store
	collection string
}

func (f failingInserts) Collection(name string) database.Collection {
	c := f.Store.Collection(name)
	if name == f.collection {
		return failingInsertCollection{c}
	}
	return c
}

type failingInsertCollection struct {
	database.Collection
}

func (failingInsertCollection) InsertOne(context.Context, any) (string, error) {
	return "", database.ErrWrite
}
