package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ClientDirectory resolves registered clients. Unknown clients are ErrInvalidClient.
type ClientDirectory interface {
	LoadClient(ctx context.Context, id domain.ClientID) (domain.Client, error)
}

// StoreClientDirectory reads clients from the store on every call.
type StoreClientDirectory struct {
	Store store.Store
}

func (d *StoreClientDirectory) LoadClient(ctx context.Context, id domain.ClientID) (domain.Client, error) {
	client, err := d.Store.Clients().GetClient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, fmt.Errorf("%w: unknown client %q", ErrInvalidClient, id)
	}
	return client, err
}

// CachedClientDirectory caches another directory's hits for a short TTL.
// Concurrent misses for the same id share one lookup. Misses are not cached.
type CachedClientDirectory struct {
	next  ClientDirectory
	cache *gocache.Cache
	group singleflight.Group
}

func NewCachedClientDirectory(next ClientDirectory, ttl time.Duration) *CachedClientDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedClientDirectory{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (d *CachedClientDirectory) LoadClient(ctx context.Context, id domain.ClientID) (domain.Client, error) {
	if v, ok := d.cache.Get(string(id)); ok {
		return v.(domain.Client), nil
	}

	// The shared lookup outlives any one caller's cancellation; each caller
	// still stops waiting when its own context ends.
	lookupCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(string(id), func() (any, error) {
		client, err := d.next.LoadClient(lookupCtx, id)
		if err != nil {
			return nil, err
		}
		d.cache.SetDefault(string(id), client)
		return client, nil
	})

	select {
	case <-ctx.Done():
		return domain.Client{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Client{}, res.Err
		}
		return res.Val.(domain.Client), nil
	}
}

// Invalidate drops a cached client, e.g. after it was updated.
func (d *CachedClientDirectory) Invalidate(id domain.ClientID) {
	d.cache.Delete(string(id))
}
