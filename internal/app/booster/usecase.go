// Package booster attaches time-bounded boosts to an aggregate. Payment
// and entitlement reconciliation happen upstream; by the time a request
// lands here the purchase is already settled.
package booster

import (
	"context"
	"errors"
	"strings"
	"time"

	"grovetender/internal/app/ephemeral"
	"grovetender/internal/app/ports"
	"grovetender/internal/app/stateview"
	"grovetender/internal/domain/grove"
)

var (
	ErrInvalidRequest = errors.New("invalid boost request")
	ErrUnknownKind    = errors.New("unknown boost kind")
)

const confirmRevertDelay = 5 * time.Second

// pendingProbe answers whether a side-event prompt is open on a surface;
// an open prompt's timeout timer must not be displaced by a reversion.
type pendingProbe interface {
	PendingOn(surfaceID string) bool
}

type UseCase struct {
	TxManager  ports.TxManager
	Trees      ports.TreeRepository
	Events     ports.EventRepository
	Scheduler  *ephemeral.Scheduler
	Renderer   ports.SurfaceRenderer
	SideEvents pendingProbe
	Curve      *grove.Curve
	Now        func() time.Time
}

type Request struct {
	CommunityID     string
	ActorID         string
	SurfaceID       string
	Kind            string
	DurationSeconds int64
}

type Response struct {
	Tree grove.TreeAggregate `json:"tree"`
	View grove.View          `json:"view"`
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.CommunityID = strings.TrimSpace(req.CommunityID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	if req.CommunityID == "" || req.ActorID == "" || req.DurationSeconds <= 0 {
		return Response{}, ErrInvalidRequest
	}
	kind := grove.BoostKind(req.Kind)
	switch kind {
	case grove.BoostFastCooldown, grove.BoostLuckyGrowth:
	default:
		return Response{}, ErrUnknownKind
	}

	var out Response
	apply := func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			agg, err := u.Trees.GetByCommunityID(txCtx, req.CommunityID)
			if err != nil {
				return err
			}
			now := u.now().Unix()
			expected := agg.Version
			grove.AddBoost(&agg, kind, req.DurationSeconds, now)
			agg.Version++
			if err := u.Trees.SaveWithVersion(txCtx, agg, expected); err != nil {
				return err
			}
			if err := u.Events.Append(txCtx, req.CommunityID, []grove.AuditEvent{{
				Type:       "boost_added",
				OccurredAt: now,
				Payload: map[string]any{
					"actor_id": req.ActorID,
					"kind":     string(kind),
					"duration": req.DurationSeconds,
				},
			}}); err != nil {
				return err
			}
			out.Tree = agg
			return nil
		})
	}

	err := apply()
	if errors.Is(err, ports.ErrConflict) {
		err = apply()
	}
	if err != nil {
		return Response{}, err
	}

	out.View = stateview.PurchaseView(kind, req.DurationSeconds)
	if req.SurfaceID != "" && u.Renderer != nil {
		_ = u.Renderer.Render(ctx, req.SurfaceID, out.View)
		u.armCanonicalRevert(req.CommunityID, req.SurfaceID)
	}
	return out, nil
}

func (u UseCase) armCanonicalRevert(communityID, surfaceID string) {
	if u.Scheduler == nil {
		return
	}
	if u.SideEvents != nil && u.SideEvents.PendingOn(surfaceID) {
		return
	}
	u.Scheduler.Replace(surfaceID, confirmRevertDelay, func() error {
		ctx := context.Background()
		agg, err := u.Trees.GetByCommunityID(ctx, communityID)
		if err != nil {
			return err
		}
		now := u.now().Unix()
		return u.Renderer.Render(ctx, surfaceID, stateview.CanonicalView(&agg, now, u.Curve))
	})
}

func (u UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
