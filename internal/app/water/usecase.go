// Package water implements the primary interaction: one rate-limited
// watering attempt against a community tree. The pipeline is ban gate →
// guard evaluation → conditional versioned write (one local retry on a
// lost race) → side-event dispatch → view rendering and reversion timers
// → watchdog signals and KPI recording.
package water

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"grovetender/internal/app/ephemeral"
	"grovetender/internal/app/ports"
	"grovetender/internal/app/sideevent"
	"grovetender/internal/app/stateview"
	"grovetender/internal/app/watchdog"
	"grovetender/internal/domain/grove"
)

var ErrInvalidRequest = errors.New("invalid watering request")

const rejectionRevertDelay = 5 * time.Second

const ToggleAllowSelfWater = "grove.allow_self_water"

type UseCase struct {
	TxManager  ports.TxManager
	Trees      ports.TreeRepository
	Events     ports.EventRepository
	Metrics    ports.WateringMetrics
	Toggles    ports.FeatureToggles
	Curve      *grove.Curve
	Rand       grove.Rand
	Dispatcher sideevent.Dispatcher
	SideEvents *sideevent.UseCase
	Scheduler  *ephemeral.Scheduler
	Renderer   ports.SurfaceRenderer
	Watchdog   *watchdog.UseCase
	Now        func() time.Time
	Logf       func(format string, args ...any)
}

func (u *UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.CommunityID = strings.TrimSpace(req.CommunityID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	req.SurfaceID = strings.TrimSpace(req.SurfaceID)
	if req.CommunityID == "" || req.ActorID == "" || req.SurfaceID == "" {
		return Response{}, ErrInvalidRequest
	}

	ban, err := u.Watchdog.ActiveBan(ctx, req.ActorID)
	if err != nil {
		u.recordFailure()
		return Response{}, err
	}
	if ban != nil {
		view := stateview.RestrictedView(ban)
		u.render(ctx, req.SurfaceID, view)
		return Response{Outcome: OutcomeBanned, View: view, Ban: ban}, nil
	}

	resp, err := u.attempt(ctx, req)
	if errors.Is(err, ports.ErrConflict) {
		// lost the write race: the winner updated lastWateredAt/lastWatererID
		// under us. Re-read and re-evaluate once.
		u.recordConflict()
		resp, err = u.attempt(ctx, req)
		if errors.Is(err, ports.ErrConflict) {
			resp, err = u.rejectAfterConflict(ctx, req)
		}
	}
	if err != nil {
		u.recordFailure()
		return Response{}, err
	}

	switch resp.Outcome {
	case OutcomeAccepted:
		u.afterAccept(ctx, req, &resp)
	case OutcomeRejected:
		u.afterReject(ctx, req, &resp)
	}
	return resp, nil
}

// attempt runs one guard evaluation and, if accepted, the single
// conditional write that makes this actor the winner. Rejections leave
// the aggregate untouched.
func (u *UseCase) attempt(ctx context.Context, req Request) (Response, error) {
	var out Response
	err := u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		agg, err := u.Trees.GetByCommunityID(txCtx, req.CommunityID)
		if err != nil {
			return err
		}
		now := u.now().Unix()

		allowSelf := u.Toggles != nil && u.Toggles.IsEnabled(ToggleAllowSelfWater)
		decision := grove.Evaluate(&agg, req.ActorID, now, u.Curve, allowSelf)
		if !decision.Accepted {
			out = Response{
				Outcome:        OutcomeRejected,
				Reason:         decision.Reason,
				NextEligibleAt: decision.NextEligibleAt,
				Tree:           agg,
			}
			return nil
		}

		expected := agg.Version
		grove.Apply(&agg, req.ActorID, now)

		bonusTicket := false
		if grove.ActiveBoost(&agg, grove.BoostLuckyGrowth, now) && grove.ShouldApply(u.Rand, grove.BoostLuckyGrowth) {
			agg.Tickets++
			bonusTicket = true
		}

		spec, dispatched := u.Dispatcher.Decide(&agg, now)
		if dispatched {
			agg.LastSideEventAt = now
		}

		if err := u.Trees.SaveWithVersion(txCtx, agg, expected); err != nil {
			return err
		}
		if err := u.Events.Append(txCtx, req.CommunityID, []grove.AuditEvent{{
			Type:       "tree_watered",
			OccurredAt: now,
			Payload: map[string]any{
				"actor_id":     req.ActorID,
				"size":         agg.Size,
				"bonus_ticket": bonusTicket,
			},
		}}); err != nil {
			return err
		}

		out = Response{
			Outcome:      OutcomeAccepted,
			Tree:         agg,
			BonusTicket:  bonusTicket,
			dispatched:   spec,
			hasSideEvent: dispatched,
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return out, nil
}

// rejectAfterConflict is the terminal path after two lost races: per the
// error model the attempt surfaces as a cooldown rejection against
// whatever state the winners left behind.
func (u *UseCase) rejectAfterConflict(ctx context.Context, req Request) (Response, error) {
	agg, err := u.Trees.GetByCommunityID(ctx, req.CommunityID)
	if err != nil {
		return Response{}, err
	}
	now := u.now().Unix()
	return Response{
		Outcome:        OutcomeRejected,
		Reason:         grove.RejectCooldown,
		NextEligibleAt: u.Curve.NextEligibleAt(&agg, now),
		Tree:           agg,
	}, nil
}

func (u *UseCase) afterAccept(ctx context.Context, req Request, resp *Response) {
	if u.Metrics != nil {
		u.Metrics.RecordAccepted()
	}
	u.Watchdog.NoteAcceptedWatering(ctx, req.ActorID, req.CommunityID)

	now := u.now().Unix()
	if resp.hasSideEvent {
		if u.Metrics != nil {
			u.Metrics.RecordSideEvent(resp.dispatched.Kind)
		}
		ev, view := u.SideEvents.Open(&resp.Tree, resp.dispatched, req.ActorID, req.SurfaceID)
		u.render(ctx, req.SurfaceID, view)
		resp.View = view
		resp.SideEvent = &SideEventInfo{
			ID:             ev.ID,
			Kind:           resp.dispatched.Kind,
			TimeoutSeconds: resp.dispatched.TimeoutSeconds,
		}
		return
	}

	// canonical view now shows the fresh cooldown; re-render the moment
	// the tree becomes actionable again
	view := stateview.CanonicalView(&resp.Tree, now, u.Curve)
	u.render(ctx, req.SurfaceID, view)
	resp.View = view
	remaining := u.Curve.RemainingSeconds(&resp.Tree, now)
	u.armCanonicalRevert(req.CommunityID, req.SurfaceID, time.Duration(remaining)*time.Second)
}

func (u *UseCase) afterReject(ctx context.Context, req Request, resp *Response) {
	if u.Metrics != nil {
		u.Metrics.RecordRejected(resp.Reason)
	}
	u.Watchdog.NoteRejectedAttempt(ctx, req.ActorID, req.CommunityID)

	now := u.now().Unix()
	view := stateview.RejectionView(resp.Reason, resp.NextEligibleAt, now)
	u.render(ctx, req.SurfaceID, view)
	resp.View = view

	delay := rejectionRevertDelay
	if resp.Reason == grove.RejectCooldown {
		// revert exactly when the aggregate becomes actionable
		if remaining := resp.NextEligibleAt - now; remaining > 0 {
			delay = time.Duration(remaining) * time.Second
		}
	}
	u.armCanonicalRevert(req.CommunityID, req.SurfaceID, delay)
}

// armCanonicalRevert schedules a re-render of the canonical view. The
// callback re-fetches the aggregate when it fires instead of closing over
// the snapshot taken here. When a side-event prompt is still open on the
// surface, its timeout timer keeps ownership: replacing it would orphan
// the pending event without ever settling the failure outcome.
func (u *UseCase) armCanonicalRevert(communityID, surfaceID string, delay time.Duration) {
	if u.SideEvents != nil && u.SideEvents.PendingOn(surfaceID) {
		return
	}
	u.Scheduler.Replace(surfaceID, delay, func() error {
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
		u.logf("water: render surface %s: %v", surfaceID, err)
	}
}

func (u *UseCase) recordConflict() {
	if u.Metrics != nil {
		u.Metrics.RecordConflict()
	}
}

func (u *UseCase) recordFailure() {
	if u.Metrics != nil {
		u.Metrics.RecordFailure()
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
