// Package memory is the in-process stand-in for the external rendering
// framework: it keeps the latest view per surface, the way an edited
// message would. Deleted surfaces reject renders so callers exercise the
// degraded path.
package memory

import (
	"context"
	"errors"
	"sync"

	"grovetender/internal/domain/grove"
)

var ErrSurfaceDeleted = errors.New("surface deleted")

type Renderer struct {
	mu      sync.Mutex
	views   map[string]grove.View
	deleted map[string]bool
}

func NewRenderer() *Renderer {
	return &Renderer{
		views:   make(map[string]grove.View),
		deleted: make(map[string]bool),
	}
}

func (r *Renderer) Render(_ context.Context, surfaceID string, view grove.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted[surfaceID] {
		return ErrSurfaceDeleted
	}
	r.views[surfaceID] = view
	return nil
}

// Current returns the last rendered view for the surface.
func (r *Renderer) Current(surfaceID string) (grove.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[surfaceID]
	return v, ok
}

// Delete marks the surface gone; later renders fail, as they would
// against a deleted message.
func (r *Renderer) Delete(surfaceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, surfaceID)
	r.deleted[surfaceID] = true
}
