package favorite

import (
	"context"
	"sync"
)

// IDSet is a read-through copy of one user's favorite listing ids, used to
// mark favorites in result lists. It never holds authoritative state; build
// a new one for every request or command.
type IDSet struct {
	svc    *Service
	userID string

	mu     sync.Mutex
	ids    map[string]struct{}
	loaded bool
}

// IDSet returns an empty projection for userID. Nothing is fetched until
// the first lookup.
func (s *Service) IDSet(userID string) *IDSet {
	return &IDSet{svc: s, userID: userID}
}

func (p *IDSet) load(ctx context.Context) {
	if p.loaded {
		return
	}
	ids := p.svc.ListingIDs(ctx, p.userID)
	p.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
	p.loaded = true
}

// Contains reports whether listingID is among the user's favorites.
// A nil set contains nothing.
func (p *IDSet) Contains(ctx context.Context, listingID string) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load(ctx)
	_, ok := p.ids[listingID]
	return ok
}
