// Package hunt implements the per-turn move policy of the hunter snake and
// the bookkeeping that tells teammates apart from prey.
//
// Several processes running this agent may be entered into the same match.
// Each one registers its own snake at match start; every snake registered
// for a match is "own" and is never chased.
package hunt

import (
	"sync"
	"sync/atomic"
	"time"
)

// OwnLookup answers whether an agent cooperates with us in a match.
type OwnLookup interface {
	IsOwn(matchID, agentID string) bool
}

// OwnRegistry is the full registry capability used by the transport.
type OwnRegistry interface {
	OwnLookup
	Register(matchID, agentID string)
	Forget(matchID string)
}

type ownSet map[string]struct{}

// Registry tracks own snakes per active match.
//
// Writes serialize on a single mutex and publish a fresh copy of the match
// table. IsOwn reads the published table without locking, so it can race
// with a concurrent Register and report false for an agent that is being
// added right now. The table only grows during a match, so the worst case
// is treating a teammate as prey for one turn.
type Registry struct {
	mu      sync.Mutex
	touched map[string]time.Time // last activity per match, guarded by mu

	matches atomic.Pointer[map[string]ownSet]

	now func() time.Time
}

func NewRegistry() *Registry {
	r := &Registry{
		touched: make(map[string]time.Time),
		now:     time.Now,
	}
	empty := make(map[string]ownSet)
	r.matches.Store(&empty)
	return r
}

// Register adds agentID to the own set of matchID and marks the match
// active. Repeated calls leave the own set unchanged.
func (r *Registry) Register(matchID, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touched[matchID] = r.now()

	cur := *r.matches.Load()
	if _, ok := cur[matchID][agentID]; ok {
		return
	}

	set := make(ownSet, len(cur[matchID])+1)
	for id := range cur[matchID] {
		set[id] = struct{}{}
	}
	set[agentID] = struct{}{}

	next := make(map[string]ownSet, len(cur)+1)
	for id, s := range cur {
		next[id] = s
	}
	next[matchID] = set
	r.matches.Store(&next)
}

// IsOwn is a relaxed read; see the Registry doc for the consistency it offers.
func (r *Registry) IsOwn(matchID, agentID string) bool {
	_, ok := (*r.matches.Load())[matchID][agentID]
	return ok
}

// Touch marks a tracked match active so Sweep keeps it. Unknown matches are
// ignored.
func (r *Registry) Touch(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.touched[matchID]; ok {
		r.touched[matchID] = r.now()
	}
}

// Forget drops everything known about matchID. Called when the match ends.
func (r *Registry) Forget(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgetLocked(matchID)
}

// Sweep forgets matches with no Register or Touch for longer than maxIdle
// and returns how many were dropped. It covers matches whose end
// notification never came.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	dropped := 0
	for id, at := range r.touched {
		if at.Before(cutoff) {
			r.forgetLocked(id)
			dropped++
		}
	}
	return dropped
}

// Len reports how many matches are tracked.
func (r *Registry) Len() int {
	return len(*r.matches.Load())
}

func (r *Registry) forgetLocked(matchID string) {
	delete(r.touched, matchID)

	cur := *r.matches.Load()
	if _, ok := cur[matchID]; !ok {
		return
	}
	next := make(map[string]ownSet, len(cur))
	for id, s := range cur {
		if id != matchID {
			next[id] = s
		}
	}
	r.matches.Store(&next)
}
