package token

import (
	"sync"
	"time"
)

// RevokedSet remembers token ids invalidated by logout until the tokens would
// have expired anyway. The set is capacity bounded: when full, the entry
// closest to expiry is dropped, which at worst un-revokes the token with the
// least remaining lifetime.
type RevokedSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	cap     int
	now     func() time.Time
}

// NewRevokedSet constructs a RevokedSet holding at most capacity entries.
func NewRevokedSet(capacity int) *RevokedSet {
	if capacity < 1 {
		capacity = 1
	}
	return &RevokedSet{
		entries: make(map[string]time.Time, capacity),
		cap:     capacity,
		now:     time.Now,
	}
}

// Revoke records the token id until exp. Tokens already past expiry are not
// stored.
func (r *RevokedSet) Revoke(jti string, exp time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !exp.After(now) {
		return
	}
	r.sweep(now)
	if len(r.entries) >= r.cap {
		r.dropSoonest()
	}
	r.entries[jti] = exp
}

// Contains reports whether the token id is currently revoked. Expired entries
// are evicted on the way.
func (r *RevokedSet) Contains(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[jti]
	if !ok {
		return false
	}
	if !exp.After(r.now()) {
		delete(r.entries, jti)
		return false
	}
	return true
}

// Len returns the number of live entries.
func (r *RevokedSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep(r.now())
	return len(r.entries)
}

// sweep removes expired entries. Caller holds the lock.
func (r *RevokedSet) sweep(now time.Time) {
	for jti, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, jti)
		}
	}
}

// dropSoonest evicts the entry with the earliest expiry. Caller holds the
// lock and guarantees the set is non-empty.
func (r *RevokedSet) dropSoonest() {
	var victim string
	var soonest time.Time
	for jti, exp := range r.entries {
		if victim == "" || exp.Before(soonest) {
			victim, soonest = jti, exp
		}
	}
	delete(r.entries, victim)
}
