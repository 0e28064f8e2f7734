package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

const storeKey = "store"

// StoreProvider hands out the store serving one request.
type StoreProvider interface {
	Acquire(ctx context.Context) (database.Store, bool)
}

// StoreMiddleware selects the store for each request and attaches it to the context
func StoreMiddleware(provider StoreProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Pick the primary store, or the in-memory one while it is unreachable
			store, fellBack := provider.Acquire(c.Request().Context())
			prometheus.RecordStoreSelection(store.Backend(), fellBack)
			if fellBack {
				logger.FromContext(c).Warn("Serving request from in-memory store",
					zap.String("backend", store.Backend()))
			}

			// Store in context, timing every operation
			c.Set(storeKey, prometheus.InstrumentStore(store))

			// Call the next handler
			return next(c)
		}
	}
}

// Store returns the store attached by StoreMiddleware
func Store(c echo.Context) database.Store {
	store, ok := c.Get(storeKey).(database.Store)
	if !ok {
		panic("middleware: no store attached to request context")
	}
	return store
}
