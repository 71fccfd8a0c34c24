package application

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const DefaultSessionTTL = time.Hour

// CoordinatorFactory builds the coordinator for a new session.
type CoordinatorFactory func(sessionID string) (*Coordinator, error)

// SessionRegistry owns one Coordinator per session id. Sessions idle longer
// than the TTL are closed and dropped.
type SessionRegistry struct {
	mu      sync.Mutex
	cache   *cache.Cache
	factory CoordinatorFactory
	logger  *slog.Logger
}

func NewSessionRegistry(ttl time.Duration, factory CoordinatorFactory, logger *slog.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	purge := ttl / 2
	if purge < time.Second {
		purge = time.Second
	}
	r := &SessionRegistry{
		cache:   cache.New(ttl, purge),
		factory: factory,
		logger:  logger,
	}
	r.cache.OnEvicted(func(id string, v interface{}) {
		activeSessions.Dec()
		if coord, ok := v.(*Coordinator); ok {
			coord.Close()
		}
		r.logger.Debug("session closed", "session_id", id)
	})
	return r
}

// Open returns the session's coordinator, creating it on first use. An empty
// id starts a new session with a generated id.
func (r *SessionRegistry) Open(id string) (*Coordinator, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if err := critique.ValidateSessionID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(id); found {
		coord := x.(*Coordinator)
		r.cache.Set(id, coord, cache.DefaultExpiration)
		return coord, nil
	}

	coord, err := r.factory(id)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}
	r.cache.Set(id, coord, cache.DefaultExpiration)
	activeSessions.Inc()
	r.logger.Debug("session opened", "session_id", id)
	return coord, nil
}

// Get returns an existing session without creating one.
func (r *SessionRegistry) Get(id string) (*Coordinator, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Coordinator), true
	}
	return nil, false
}

// Close drops a session and ends its subscriptions.
func (r *SessionRegistry) Close(id string) {
	r.cache.Delete(id)
}

// IDs lists live sessions, sorted.
func (r *SessionRegistry) IDs() []string {
	items := r.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *SessionRegistry) Len() int {
	return r.cache.ItemCount()
}

// CloseAll drops every session.
func (r *SessionRegistry) CloseAll() {
	for _, id := range r.IDs() {
		r.Close(id)
	}
}
