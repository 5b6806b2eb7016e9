package sideevent

import "sync"

// PendingEvent is the process-local record of an open side-event prompt.
// Like the reversion timers it pairs with, it is not persisted: a restart
// drops open prompts and their timeouts together.
type PendingEvent struct {
	ID          string
	CommunityID string
	SurfaceID   string
	Kind        string
	OpenedBy    string
	OpenedAt    int64
}

// Registry holds at most one pending side-event per surface. Take is the
// only way to resolve an entry, so an explicit follow-up and the timeout
// race safely: whichever takes the entry first applies the outcome, the
// other becomes a no-op.
type Registry struct {
	mu        sync.Mutex
	bySurface map[string]PendingEvent
}

func NewRegistry() *Registry {
	return &Registry{bySurface: make(map[string]PendingEvent)}
}

func (r *Registry) Put(ev PendingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySurface[ev.SurfaceID] = ev
}

// Take removes and returns the pending event for the surface if its id
// matches. An empty eventID matches whatever is pending (timeout path).
func (r *Registry) Take(surfaceID, eventID string) (PendingEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.bySurface[surfaceID]
	if !ok {
		return PendingEvent{}, false
	}
	if eventID != "" && ev.ID != eventID {
		return PendingEvent{}, false
	}
	delete(r.bySurface, surfaceID)
	return ev, true
}

func (r *Registry) Peek(surfaceID string) (PendingEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.bySurface[surfaceID]
	return ev, ok
}
