package ports

import (
	"context"

	"grovetender/internal/domain/grove"
)

// SurfaceRenderer pushes a declarative view to the externally-visible UI
// surface (a message identifier). The transport behind it may reject the
// render when the surface no longer exists; callers treat that as
// non-fatal.
type SurfaceRenderer interface {
	Render(ctx context.Context, surfaceID string, view grove.View) error
}
