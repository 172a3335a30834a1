package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bacendata/sgs-client/pkg/catalog"
	"github.com/bacendata/sgs-client/pkg/dates"
	"github.com/bacendata/sgs-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Manager owns the cache lifecycle and the TTL policy. It starts
// disabled: Lookup always misses and Store is a no-op until Activate
// installs a backend. The manager is an explicitly constructed handle
// passed to the fetch pipeline; there is no process-wide cache state.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	catalog *catalog.Registry
	logger  zerolog.Logger
}

// NewManager creates a cache manager in the disabled state. The catalog
// supplies the periodicity of each series, which drives per-entry TTLs.
func NewManager(reg *catalog.Registry) *Manager {
	if reg == nil {
		reg = catalog.Default()
	}
	return &Manager{
		catalog: reg,
		logger:  logging.NewLogger("cache"),
	}
}

// Activate installs a backend and enables the cache. Any previously
// installed backend is closed first.
func (m *Manager) Activate(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to close previous cache store")
		}
	}
	m.store = store
	m.logger.Info().Msg("Cache activated")
}

// Deactivate disables the cache and closes the backend.
func (m *Manager) Deactivate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	m.logger.Info().Msg("Cache deactivated")
	return err
}

// Enabled reports whether a backend is installed.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store != nil
}

func (m *Manager) current() Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

// Lookup returns the cached payload for a (series, sub-range) key, or
// ok=false on a miss. Entries whose age exceeds their TTL are treated
// as a miss and deleted. Backend errors degrade to a miss so the caller
// falls back to the upstream.
func (m *Manager) Lookup(ctx context.Context, code int, rng dates.Range) ([]byte, bool) {
	store := m.current()
	if store == nil {
		return nil, false
	}

	key := NewKey(code, rng).String()
	entry, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			cacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		}
		cacheMisses.Inc()
		return nil, false
	}

	if entry.Expired(time.Now()) {
		if err := store.Delete(ctx, key); err != nil {
			cacheErrors.WithLabelValues("delete").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete expired entry")
		}
		cacheMisses.Inc()
		return nil, false
	}

	cacheHits.Inc()
	m.logger.Debug().Str("key", key).Msg("Cache hit")
	return entry.Payload, true
}

// Store writes a payload under a (series, sub-range) key with the TTL
// derived from the series' periodicity. A no-op while disabled; backend
// errors are logged, never surfaced, since a failed cache write must
// not fail a successful fetch.
func (m *Manager) Store(ctx context.Context, code int, rng dates.Range, payload []byte) {
	m.StoreWithTTL(ctx, code, rng, payload, m.catalog.PeriodicityOf(code).CacheTTL())
}

// StoreWithTTL is Store with an explicit TTL override.
func (m *Manager) StoreWithTTL(ctx context.Context, code int, rng dates.Range, payload []byte, ttl time.Duration) {
	store := m.current()
	if store == nil {
		return
	}

	key := NewKey(code, rng).String()
	entry := &Entry{Payload: payload, StoredAt: time.Now(), TTL: ttl}
	if err := store.Set(ctx, key, entry); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache set error")
		return
	}
	m.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached upstream result")
}

// Purge removes every entry. A no-op while disabled.
func (m *Manager) Purge(ctx context.Context) error {
	store := m.current()
	if store == nil {
		return nil
	}
	if err := store.Purge(ctx); err != nil {
		cacheErrors.WithLabelValues("purge").Inc()
		return err
	}
	m.logger.Info().Msg("Cache purged")
	return nil
}

// PurgeExpired removes expired entries and reports how many went.
// Returns zero while disabled.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	store := m.current()
	if store == nil {
		return 0, nil
	}
	n, err := store.PurgeExpired(ctx)
	if err != nil {
		cacheErrors.WithLabelValues("purge").Inc()
		return 0, err
	}
	if n > 0 {
		m.logger.Info().Int("removed", n).Msg("Expired cache entries removed")
	}
	return n, nil
}
