package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps session state in process. It suits single-instance
// deployments and tests.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &MemoryStore{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *MemoryStore) Save(_ context.Context, sid string, st State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(sid, st, ttl)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sid string) (State, error) {
	v, ok := m.c.Get(sid)
	if !ok {
		return State{}, ErrNotFound
	}
	st, ok := v.(State)
	if !ok {
		return State{}, ErrNotFound
	}
	return st, nil
}

func (m *MemoryStore) Clear(_ context.Context, sid string) error {
	m.c.Delete(sid)
	return nil
}

// Len reports how many entries are held, including expired ones not yet evicted.
func (m *MemoryStore) Len() int {
	return m.c.ItemCount()
}
