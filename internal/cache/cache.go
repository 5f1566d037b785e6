// Package cache keeps recently read listings close to the HTTP surface.
// The record store stays authoritative; cache errors never fail a read.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tuespacio/tuespacio/internal/listing"
)

// DefaultTTL is how long a cached listing is served.
const DefaultTTL = 5 * time.Minute

// ListingCache stores listings by id. Get returns nil, nil on a miss.
type ListingCache interface {
	Get(ctx context.Context, id string) (*listing.Listing, error)
	Set(ctx context.Context, l *listing.Listing) error
	Delete(ctx context.Context, id string) error
}

func key(id string) string {
	return "listing:" + id
}

// Memory is an in-process ListingCache.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	listing *listing.Listing
	expires time.Time
}

// NewMemory creates an in-process cache. A ttl of zero uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Get implements ListingCache.
func (m *Memory) Get(ctx context.Context, id string) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key(id)]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key(id))
		return nil, nil
	}
	cp := *e.listing
	return &cp, nil
}

// Set implements ListingCache.
func (m *Memory) Set(ctx context.Context, l *listing.Listing) error {
	cp := *l
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(l.ID)] = memoryEntry{listing: &cp, expires: m.now().Add(m.ttl)}
	return nil
}

// Delete implements ListingCache.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(id))
	return nil
}

// Getter loads a listing from the record store.
type Getter interface {
	Get(ctx context.Context, id string) (*listing.Listing, error)
}

// Listings reads listings through a cache.
type Listings struct {
	source Getter
	cache  ListingCache
}

// NewListings wraps source with cache. A nil cache reads straight through.
func NewListings(source Getter, cache ListingCache) *Listings {
	return &Listings{source: source, cache: cache}
}

// Get returns the cached listing or loads and caches it.
func (l *Listings) Get(ctx context.Context, id string) (*listing.Listing, error) {
	if l.cache == nil {
		return l.source.Get(ctx, id)
	}

	cached, err := l.cache.Get(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "listing cache read failed", "listing_id", id, "error", err)
	}
	if cached != nil {
		slog.DebugContext(ctx, "listing cache hit", "listing_id", id)
		return cached, nil
	}

	fresh, err := l.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, fresh); err != nil {
		slog.WarnContext(ctx, "listing cache write failed", "listing_id", id, "error", err)
	}
	return fresh, nil
}

// Invalidate drops a listing from the cache.
func (l *Listings) Invalidate(ctx context.Context, id string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, id); err != nil {
		slog.WarnContext(ctx, "listing cache delete failed", "listing_id", id, "error", err)
	}
}
