package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/tony-42069/abare-v2/pkg/config"
	"go.uber.org/zap"
)

// Unique constraints every backend carries.
var uniqueIndexes = []struct{ collection, field string }{
	{"users", "email"},
}

// Dialer opens the primary backend.
type Dialer func(ctx context.Context) (Store, error)

// Provider picks the store serving each request. The primary backend is
// connected lazily and kept once reachable; while it is unreachable every
// request is served by the in-memory fallback and the next request retries.
type Provider struct {
	log      *zap.Logger
	inMemory bool
	dial     Dialer
	memory   *MemoryStore

	mu          sync.Mutex
	primary     Store
	dialing     bool
	closed      bool
	memoryReady bool
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithDialer replaces the function used to open the primary backend.
func WithDialer(d Dialer) ProviderOption {
	return func(p *Provider) { p.dial = d }
}

// WithMemoryStore replaces the process-wide fallback store.
func WithMemoryStore(m *MemoryStore) ProviderOption {
	return func(p *Provider) { p.memory = m }
}

// NewProvider creates a Provider for cfg.
func NewProvider(cfg *config.Config, log *zap.Logger, opts ...ProviderOption) *Provider {
	p := &Provider{
		log:      log,
		inMemory: cfg.InMemory(),
		dial:     defaultDialer(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.memory == nil {
		p.memory = SharedMemoryStore()
	}
	return p
}

func defaultDialer(cfg *config.Config) Dialer {
	return func(ctx context.Context) (Store, error) {
		switch cfg.Store.Backend {
		case config.BackendPostgres:
			return OpenPostgres(ctx, &cfg.DB, cfg.Store.ConnectTimeout)
		case config.BackendMongo:
			return OpenMongo(ctx, cfg.Store.MongoURL, cfg.Store.DatabaseName, cfg.Store.ConnectTimeout)
		default:
			return nil, fmt.Errorf("%w: backend %q", ErrUnavailable, cfg.Store.Backend)
		}
	}
}

// Acquire returns the store for one request and whether it is the fallback
// standing in for an unreachable primary. Only one request dials at a time;
// requests arriving meanwhile are served by the fallback without waiting.
func (p *Provider) Acquire(ctx context.Context) (Store, bool) {
	if p.inMemory {
		return p.fallback(ctx), false
	}

	p.mu.Lock()
	if p.primary != nil {
		defer p.mu.Unlock()
		return p.primary, false
	}
	if p.dialing || p.closed {
		defer p.mu.Unlock()
		p.log.Warn("Primary store not connected, using in-memory store for this request")
		return p.fallbackLocked(ctx), true
	}
	p.dialing = true
	p.mu.Unlock()

	store, err := p.dial(ctx)
	if err == nil {
		p.ensureIndexes(ctx, store)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false

	if err != nil {
		p.log.Warn("Primary store unavailable, using in-memory store for this request", zap.Error(err))
		return p.fallbackLocked(ctx), true
	}
	if p.closed {
		_ = store.Close(ctx)
		return p.fallbackLocked(ctx), true
	}
	p.primary = store
	p.log.Info("Primary store connected", zap.String("backend", store.Backend()))
	return store, false
}

func (p *Provider) fallback(ctx context.Context) Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallbackLocked(ctx)
}

func (p *Provider) fallbackLocked(ctx context.Context) Store {
	if !p.memoryReady {
		p.ensureIndexes(ctx, p.memory)
		p.memoryReady = true
	}
	return p.memory
}

func (p *Provider) ensureIndexes(ctx context.Context, s Store) {
	for _, idx := range uniqueIndexes {
		if err := s.EnsureUniqueIndex(ctx, idx.collection, idx.field); err != nil {
			p.log.Warn("Failed to ensure unique index",
				zap.String("backend", s.Backend()),
				zap.String("collection", idx.collection),
				zap.String("field", idx.field),
				zap.Error(err))
		}
	}
}

// Close disconnects the primary store if one was opened.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.primary == nil {
		return nil
	}
	err := p.primary.Close(ctx)
	p.primary = nil
	return err
}
