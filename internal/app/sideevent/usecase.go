package sideevent

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"grovetender/internal/app/ephemeral"
	"grovetender/internal/app/ports"
	"grovetender/internal/app/stateview"
	"grovetender/internal/domain/grove"
)

var (
	ErrInvalidRequest = errors.New("invalid side-event request")
	// ErrNoPendingEvent covers both an expired prompt and a stale event id.
	ErrNoPendingEvent = errors.New("no pending side-event for surface")
)

const resultRevertDelay = 5 * time.Second

// UseCase settles side-events: opening the prompt after dispatch, and
// resolving it by explicit follow-up or by timeout. Both resolution paths
// funnel through Registry.Take, so they cannot both apply an outcome.
type UseCase struct {
	TxManager ports.TxManager
	Trees     ports.TreeRepository
	Events    ports.EventRepository
	Pending   *Registry
	Scheduler *ephemeral.Scheduler
	Renderer  ports.SurfaceRenderer
	Curve     *grove.Curve
	Now       func() time.Time
	Logf      func(format string, args ...any)
}

// Open registers the pending event for the surface, arms its timeout, and
// returns the prompt view. Arming replaces any reversion timer already
// pending for the surface: side-events are mutually exclusive per surface.
func (u *UseCase) Open(agg *grove.TreeAggregate, spec grove.SideEventSpec, actorID, surfaceID string) (PendingEvent, grove.View) {
	ev := PendingEvent{
		ID:          uuid.NewString(),
		CommunityID: agg.CommunityID,
		SurfaceID:   surfaceID,
		Kind:        spec.Kind,
		OpenedBy:    actorID,
		OpenedAt:    u.now().Unix(),
	}
	u.Pending.Put(ev)
	u.Scheduler.Replace(surfaceID, time.Duration(spec.TimeoutSeconds)*time.Second, func() error {
		return u.Timeout(surfaceID)
	})
	return ev, stateview.SideEventView(spec, ev.ID)
}

// PendingOn reports whether a side-event prompt is still open on the
// surface. While one is open, its timeout owns the surface's timer and
// reversion timers must not displace it.
func (u *UseCase) PendingOn(surfaceID string) bool {
	_, ok := u.Pending.Peek(surfaceID)
	return ok
}

type ResolveRequest struct {
	CommunityID string
	ActorID     string
	SurfaceID   string
	EventID     string
	Success     bool
}

type ResolveResponse struct {
	Tree    grove.TreeAggregate `json:"tree"`
	Kind    string              `json:"kind"`
	Success bool                `json:"success"`
	View    grove.View          `json:"view"`
}

// Resolve settles a pending side-event from an explicit follow-up action.
func (u *UseCase) Resolve(ctx context.Context, req ResolveRequest) (ResolveResponse, error) {
	if req.CommunityID == "" || req.SurfaceID == "" || req.ActorID == "" {
		return ResolveResponse{}, ErrInvalidRequest
	}
	// the prompt belongs to one community's tree; a resolve addressed to
	// another community must not settle it
	if pending, ok := u.Pending.Peek(req.SurfaceID); ok && pending.CommunityID != req.CommunityID {
		return ResolveResponse{}, ErrNoPendingEvent
	}
	ev, ok := u.Pending.Take(req.SurfaceID, req.EventID)
	if !ok {
		return ResolveResponse{}, ErrNoPendingEvent
	}
	u.Scheduler.Cancel(req.SurfaceID)

	spec, ok := grove.SideEventSpecByKind(ev.Kind)
	if !ok {
		return ResolveResponse{}, ErrNoPendingEvent
	}
	agg, err := u.settle(ctx, ev, spec, req.Success, req.ActorID)
	if err != nil {
		return ResolveResponse{}, err
	}

	view := stateview.SideEventResultView(spec, req.Success)
	u.render(ctx, req.SurfaceID, view)
	u.armCanonicalRevert(ev.CommunityID, req.SurfaceID, resultRevertDelay)

	return ResolveResponse{
		Tree:    agg,
		Kind:    ev.Kind,
		Success: req.Success,
		View:    view,
	}, nil
}

// Timeout applies the failure outcome for whatever is still pending on
// the surface and re-renders the canonical view. Idempotent: if the
// prompt was already resolved, it is a no-op.
func (u *UseCase) Timeout(surfaceID string) error {
	ev, ok := u.Pending.Take(surfaceID, "")
	if !ok {
		return nil
	}
	spec, ok := grove.SideEventSpecByKind(ev.Kind)
	if !ok {
		return nil
	}

	ctx := context.Background()
	agg, err := u.settle(ctx, ev, spec, false, ev.OpenedBy)
	if err != nil {
		return err
	}
	now := u.now().Unix()
	u.render(ctx, surfaceID, stateview.CanonicalView(&agg, now, u.Curve))
	return nil
}

// settle applies the outcome with the same optimistic discipline as the
// watering path: one local retry on a lost version race.
func (u *UseCase) settle(ctx context.Context, ev PendingEvent, spec grove.SideEventSpec, success bool, actorID string) (grove.TreeAggregate, error) {
	var out grove.TreeAggregate
	attempt := func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			agg, err := u.Trees.GetByCommunityID(txCtx, ev.CommunityID)
			if err != nil {
				return err
			}
			expected := agg.Version
			grove.ApplySideEventOutcome(&agg, spec, success)
			if err := u.Trees.SaveWithVersion(txCtx, agg, expected); err != nil {
				return err
			}
			if err := u.Events.Append(txCtx, ev.CommunityID, []grove.AuditEvent{{
				Type:       "side_event_resolved",
				OccurredAt: u.now().Unix(),
				Payload: map[string]any{
					"event_id": ev.ID,
					"kind":     ev.Kind,
					"actor_id": actorID,
					"success":  success,
				},
			}}); err != nil {
				return err
			}
			out = agg
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, ports.ErrConflict) {
		err = attempt()
	}
	if err != nil {
		return grove.TreeAggregate{}, err
	}
	return out, nil
}

func (u *UseCase) armCanonicalRevert(communityID, surfaceID string, delay time.Duration) {
	u.Scheduler.Arm(surfaceID, delay, func() error {
		ctx := context.Background()
		agg, err := u.Trees.GetByCommunityID(ctx, communityID)
		if err != nil {
			return err
		}
		now := u.now().Unix()
		return u.Renderer.Render(ctx, surfaceID, stateview.CanonicalView(&agg, now, u.Curve))
	})
}

func (u *UseCase) render(ctx context.Context, surfaceID string, view grove.View) {
	if u.Renderer == nil {
		return
	}
	if err := u.Renderer.Render(ctx, surfaceID, view); err != nil {
		u.logf("sideevent: render surface %s: %v", surfaceID, err)
	}
}

func (u *UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u *UseCase) logf(format string, args ...any) {
	if u.Logf != nil {
		u.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
