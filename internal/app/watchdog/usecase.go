// Package watchdog aggregates failed-attempt and cadence signals from the
// watering stream into flags, and escalates repeated flags into bans.
// Every write is best-effort: a persistence failure here must never block
// or roll back the primary action that produced the signal.
package watchdog

import (
	"context"
	"log"
	"strings"
	"time"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

const (
	AttemptKindRejected = "rejected"
	AttemptKindAccepted = "accepted"

	ReasonExcessiveAttempts  = "excessive_attempts"
	ReasonImplausibleCadence = "implausible_cadence"

	ToggleObserve = "watchdog.observe"
	ToggleFlag    = "watchdog.flag"
	ToggleAutoban = "watchdog.autoban"
)

type UseCase struct {
	Toggles  ports.FeatureToggles
	Attempts ports.AttemptRepository
	Flags    ports.FlagRepository
	Bans     ports.BanRepository
	Events   ports.EventRepository
	Now      func() time.Time

	// zero values fall back to defaults below
	AttemptWindow    time.Duration
	AttemptThreshold int64
	AttemptTTL       time.Duration
	CadenceWindow    time.Duration
	CadenceHours     int64
	FlagWindow       time.Duration
	FlagThreshold    int64
	BanDuration      time.Duration

	Logf func(format string, args ...any)
}

const (
	defaultAttemptWindow    = time.Hour
	defaultAttemptThreshold = 15
	defaultAttemptTTL       = 48 * time.Hour
	defaultCadenceWindow    = 24 * time.Hour
	defaultCadenceHours     = 18
	defaultFlagWindow       = 24 * time.Hour
	defaultFlagThreshold    = 5
	defaultBanDuration      = 7 * 24 * time.Hour
)

// ActiveBan returns the actor's live ban, if any. This is the only
// watchdog read on the hot path and its errors do propagate: an
// unavailable ban store must not silently unban.
func (u *UseCase) ActiveBan(ctx context.Context, actorID string) (*ports.BanRecord, error) {
	return u.Bans.ActiveForActor(ctx, actorID, u.now())
}

// NoteRejectedAttempt records one rejected watering and runs the attempt
// window heuristic. Safe to call concurrently with the primary flow.
func (u *UseCase) NoteRejectedAttempt(ctx context.Context, actorID, communityID string) {
	if !u.Toggles.IsEnabled(ToggleObserve) {
		return
	}
	now := u.now()
	err := u.Attempts.Record(ctx, ports.AttemptRecord{
		ActorID:     actorID,
		CommunityID: communityID,
		Kind:        AttemptKindRejected,
		CreatedAt:   now,
		ExpiresAt:   now.Add(u.attemptTTL()),
	})
	if err != nil {
		u.logf("watchdog: record rejected attempt for %s/%s: %v", actorID, communityID, err)
		return
	}

	count, err := u.Attempts.CountSince(ctx, actorID, communityID, AttemptKindRejected, now.Add(-u.attemptWindow()))
	if err != nil {
		u.logf("watchdog: count attempts for %s/%s: %v", actorID, communityID, err)
		return
	}
	if count > u.attemptThreshold() {
		u.maybeFlag(ctx, actorID, communityID, ReasonExcessiveAttempts)
	}
}

// NoteAcceptedWatering records one accepted watering and runs the
// cadence heuristic: acting in an implausible number of distinct hours
// across communities flags the actor.
func (u *UseCase) NoteAcceptedWatering(ctx context.Context, actorID, communityID string) {
	if !u.Toggles.IsEnabled(ToggleObserve) {
		return
	}
	now := u.now()
	err := u.Attempts.Record(ctx, ports.AttemptRecord{
		ActorID:     actorID,
		CommunityID: communityID,
		Kind:        AttemptKindAccepted,
		CreatedAt:   now,
		ExpiresAt:   now.Add(u.attemptTTL()),
	})
	if err != nil {
		u.logf("watchdog: record accepted watering for %s/%s: %v", actorID, communityID, err)
		return
	}

	hours, err := u.Attempts.DistinctHoursSince(ctx, actorID, AttemptKindAccepted, now.Add(-u.cadenceWindow()))
	if err != nil {
		u.logf("watchdog: distinct hours for %s: %v", actorID, err)
		return
	}
	if hours >= u.cadenceHours() {
		u.maybeFlag(ctx, actorID, communityID, ReasonImplausibleCadence)
	}
}

// maybeFlag writes at most one flag per actor+community+reason per flag
// window, then evaluates ban escalation.
func (u *UseCase) maybeFlag(ctx context.Context, actorID, communityID, reason string) {
	if !u.Toggles.IsEnabled(ToggleFlag) {
		return
	}
	now := u.now()
	since := now.Add(-u.flagWindow())

	existing, err := u.Flags.LatestSince(ctx, actorID, communityID, reason, since)
	if err != nil {
		u.logf("watchdog: look up flag for %s/%s: %v", actorID, communityID, err)
		return
	}
	if existing != nil {
		return
	}

	if err := u.Flags.Record(ctx, ports.FlagRecord{
		ActorID:     actorID,
		CommunityID: communityID,
		Reason:      reason,
		CreatedAt:   now,
	}); err != nil {
		u.logf("watchdog: record flag for %s/%s: %v", actorID, communityID, err)
		return
	}
	u.audit(ctx, communityID, "actor_flagged", map[string]any{
		"actor_id": actorID,
		"reason":   reason,
	})

	u.maybeBan(ctx, actorID, communityID, since)
}

func (u *UseCase) maybeBan(ctx context.Context, actorID, communityID string, since time.Time) {
	if !u.Toggles.IsEnabled(ToggleAutoban) {
		return
	}
	now := u.now()

	count, err := u.Flags.CountForActorSince(ctx, actorID, since)
	if err != nil {
		u.logf("watchdog: count flags for %s: %v", actorID, err)
		return
	}
	if count < u.flagThreshold() {
		return
	}
	if active, err := u.Bans.ActiveForActor(ctx, actorID, now); err != nil {
		u.logf("watchdog: look up ban for %s: %v", actorID, err)
		return
	} else if active != nil {
		return
	}

	reasons, err := u.Flags.DistinctReasonsSince(ctx, actorID, since)
	if err != nil {
		u.logf("watchdog: list flag reasons for %s: %v", actorID, err)
		return
	}
	expires := now.Add(u.banDuration())
	ban := ports.BanRecord{
		ActorID:   actorID,
		Reason:    "automated activity suspected: " + strings.Join(reasons, ", "),
		CreatedAt: now,
		ExpiresAt: &expires,
	}
	if err := u.Bans.Record(ctx, ban); err != nil {
		u.logf("watchdog: record ban for %s: %v", actorID, err)
		return
	}
	u.audit(ctx, communityID, "actor_banned", map[string]any{
		"actor_id":   actorID,
		"reason":     ban.Reason,
		"expires_at": expires.Unix(),
	})
}

func (u *UseCase) audit(ctx context.Context, communityID, eventType string, payload map[string]any) {
	if u.Events == nil {
		return
	}
	err := u.Events.Append(ctx, communityID, []grove.AuditEvent{{
		Type:       eventType,
		OccurredAt: u.now().Unix(),
		Payload:    payload,
	}})
	if err != nil {
		u.logf("watchdog: append %s audit event: %v", eventType, err)
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

func (u *UseCase) attemptWindow() time.Duration {
	if u.AttemptWindow > 0 {
		return u.AttemptWindow
	}
	return defaultAttemptWindow
}

func (u *UseCase) attemptThreshold() int64 {
	if u.AttemptThreshold > 0 {
		return u.AttemptThreshold
	}
	return defaultAttemptThreshold
}

func (u *UseCase) attemptTTL() time.Duration {
	if u.AttemptTTL > 0 {
		return u.AttemptTTL
	}
	return defaultAttemptTTL
}

func (u *UseCase) cadenceWindow() time.Duration {
	if u.CadenceWindow > 0 {
		return u.CadenceWindow
	}
	return defaultCadenceWindow
}

func (u *UseCase) cadenceHours() int64 {
	if u.CadenceHours > 0 {
		return u.CadenceHours
	}
	return defaultCadenceHours
}

func (u *UseCase) flagWindow() time.Duration {
	if u.FlagWindow > 0 {
		return u.FlagWindow
	}
	return defaultFlagWindow
}

func (u *UseCase) flagThreshold() int64 {
	if u.FlagThreshold > 0 {
		return u.FlagThreshold
	}
	return defaultFlagThreshold
}

func (u *UseCase) banDuration() time.Duration {
	if u.BanDuration > 0 {
		return u.BanDuration
	}
	return defaultBanDuration
}
