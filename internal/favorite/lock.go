package favorite

import "sync"

// pairLocks serializes operations on the same (user, listing) pair within
// this process. Entries are dropped once no goroutine holds them.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func pairKey(userID, listingID string) string {
	return userID + "\x00" + listingID
}

// lock acquires the pair's lock and returns its release func.
func (p *pairLocks) lock(userID, listingID string) func() {
	key := pairKey(userID, listingID)

	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*pairLock)
	}
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

// held returns the number of pairs currently tracked.
func (p *pairLocks) held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
