// Package presence maintains the authoritative in-memory roster of online
// identities and their live connection handles. The registry is process
// local: a multi-instance deployment would need an external shared
// presence store, which is the natural extension point here.
package presence

import (
	"sync"

	"github.com/abdullayevf/chat-app/contract"
	"github.com/abdullayevf/chat-app/domain"
)

type handleSet map[contract.EventSink]struct{}

// Registry maps identity id to the set of live connection handles for that
// identity. An identity is online iff it owns at least one handle; several
// handles per identity are normal (multiple browser tabs).
type Registry struct {
	mu      sync.RWMutex
	members map[string]handleSet
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]handleSet)}
}

// Register adds a handle under the identity. The returned flag is true only
// when this was the first handle, i.e. the identity transitioned from
// offline to online. Registering the same handle twice is harmless.
func (r *Registry) Register(identity domain.Identity, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sinks, known := r.members[identity.ID]
	if !known {
		sinks = make(handleSet)
		r.members[identity.ID] = sinks
	}
	sinks[sink] = struct{}{}
	return !known
}

// Unregister removes a handle. The returned flag is true only when the last
// handle of that identity disappeared, i.e. the identity transitioned from
// online to offline. Removing a handle that was never registered, or was
// already removed, is a defensive no-op and never reports a transition.
func (r *Registry) Unregister(identity domain.Identity, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sinks, known := r.members[identity.ID]
	if !known {
		return false
	}
	if _, present := sinks[sink]; !present {
		return false
	}
	delete(sinks, sink)
	if len(sinks) > 0 {
		return false
	}
	// Last handle gone: drop the entry entirely so no empty sets pile up.
	delete(r.members, identity.ID)
	return true
}

// Snapshot returns the ids of every identity currently online. The slice is
// built under the lock, so no identity appears or vanishes mid-enumeration.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// AllSinks returns every live handle for broadcast fan-out.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, set := range r.members {
		for sink := range set {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
