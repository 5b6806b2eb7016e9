package watchdog

import (
	"context"
	"strings"
	"testing"
	"time"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

type stubToggles struct{ enabled map[string]bool }

func (s stubToggles) IsEnabled(name string) bool { return s.enabled[name] }

func allToggles() stubToggles {
	return stubToggles{enabled: map[string]bool{
		ToggleObserve: true,
		ToggleFlag:    true,
		ToggleAutoban: true,
	}}
}

type stubAttemptRepo struct {
	records []ports.AttemptRecord
}

func (s *stubAttemptRepo) Record(_ context.Context, a ports.AttemptRecord) error {
	s.records = append(s.records, a)
	return nil
}

func (s *stubAttemptRepo) CountSince(_ context.Context, actorID, communityID, kind string, since time.Time) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.ActorID == actorID && r.CommunityID == communityID && r.Kind == kind && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *stubAttemptRepo) DistinctHoursSince(_ context.Context, actorID, kind string, since time.Time) (int64, error) {
	hours := map[time.Time]struct{}{}
	for _, r := range s.records {
		if r.ActorID == actorID && r.Kind == kind && !r.CreatedAt.Before(since) {
			hours[r.CreatedAt.Truncate(time.Hour)] = struct{}{}
		}
	}
	return int64(len(hours)), nil
}

type stubFlagRepo struct {
	records []ports.FlagRecord
}

func (s *stubFlagRepo) Record(_ context.Context, f ports.FlagRecord) error {
	s.records = append(s.records, f)
	return nil
}

func (s *stubFlagRepo) LatestSince(_ context.Context, actorID, communityID, reason string, since time.Time) (*ports.FlagRecord, error) {
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.ActorID == actorID && r.CommunityID == communityID && r.Reason == reason && !r.CreatedAt.Before(since) {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *stubFlagRepo) CountForActorSince(_ context.Context, actorID string, since time.Time) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.ActorID == actorID && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *stubFlagRepo) DistinctReasonsSince(_ context.Context, actorID string, since time.Time) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range s.records {
		if r.ActorID != actorID || r.CreatedAt.Before(since) {
			continue
		}
		if _, ok := seen[r.Reason]; ok {
			continue
		}
		seen[r.Reason] = struct{}{}
		out = append(out, r.Reason)
	}
	return out, nil
}

type stubBanRepo struct {
	records []ports.BanRecord
}

func (s *stubBanRepo) Record(_ context.Context, b ports.BanRecord) error {
	s.records = append(s.records, b)
	return nil
}

func (s *stubBanRepo) ActiveForActor(_ context.Context, actorID string, now time.Time) (*ports.BanRecord, error) {
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.ActorID != actorID {
			continue
		}
		if r.ExpiresAt == nil || now.Before(*r.ExpiresAt) {
			return &r, nil
		}
	}
	return nil, nil
}

type stubEventRepo struct {
	byType map[string]int
}

func (s *stubEventRepo) Append(_ context.Context, _ string, events []grove.AuditEvent) error {
	if s.byType == nil {
		s.byType = map[string]int{}
	}
	for _, e := range events {
		s.byType[e.Type]++
	}
	return nil
}

func (s *stubEventRepo) ListByCommunityID(_ context.Context, _ string, _ int) ([]grove.AuditEvent, error) {
	return nil, nil
}

func newUseCase(toggles stubToggles) (*UseCase, *stubAttemptRepo, *stubFlagRepo, *stubBanRepo, *stubEventRepo, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	attempts := &stubAttemptRepo{}
	flags := &stubFlagRepo{}
	bans := &stubBanRepo{}
	events := &stubEventRepo{}
	uc := &UseCase{
		Toggles:  toggles,
		Attempts: attempts,
		Flags:    flags,
		Bans:     bans,
		Events:   events,
		Now:      func() time.Time { return now },
		Logf:     func(string, ...any) {},
	}
	return uc, attempts, flags, bans, events, &now
}

func TestSixteenRejectionsProduceExactlyOneFlag(t *testing.T) {
	uc, _, flags, _, events, now := newUseCase(allToggles())
	ctx := context.Background()

	for i := 0; i < 16; i++ {
		*now = now.Add(time.Minute)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
	}
	if len(flags.records) != 1 {
		t.Fatalf("expected exactly one flag after 16 rejections, got %d", len(flags.records))
	}
	if flags.records[0].Reason != ReasonExcessiveAttempts {
		t.Fatalf("unexpected flag reason %q", flags.records[0].Reason)
	}
	if events.byType["actor_flagged"] != 1 {
		t.Fatalf("expected one audit event, got %d", events.byType["actor_flagged"])
	}

	// 17th rejection inside the same window is suppressed
	*now = now.Add(time.Minute)
	uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
	if len(flags.records) != 1 {
		t.Fatalf("re-flag should be suppressed, got %d flags", len(flags.records))
	}

	// after the flag window resets, the heuristic may flag again
	*now = now.Add(25 * time.Hour)
	for i := 0; i < 16; i++ {
		*now = now.Add(time.Second)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
	}
	if len(flags.records) != 2 {
		t.Fatalf("expected a second flag after the window reset, got %d", len(flags.records))
	}
}

func TestCadenceHeuristicFlagsImplausibleHours(t *testing.T) {
	uc, _, flags, _, _, now := newUseCase(allToggles())
	ctx := context.Background()

	for i := 0; i < 18; i++ {
		*now = now.Add(time.Hour)
		uc.NoteAcceptedWatering(ctx, "actor-a", "g1")
	}
	if len(flags.records) != 1 {
		t.Fatalf("expected one cadence flag, got %d", len(flags.records))
	}
	if flags.records[0].Reason != ReasonImplausibleCadence {
		t.Fatalf("unexpected reason %q", flags.records[0].Reason)
	}
}

func TestFlagThresholdTriggersBoundedBan(t *testing.T) {
	uc, _, flags, bans, events, now := newUseCase(allToggles())
	ctx := context.Background()

	// seed flags across communities and reasons just under the threshold
	for i := 0; i < 4; i++ {
		flags.records = append(flags.records, ports.FlagRecord{
			ActorID:     "actor-a",
			CommunityID: "g" + string(rune('1'+i)),
			Reason:      ReasonImplausibleCadence,
			CreatedAt:   *now,
		})
	}

	for i := 0; i < 16; i++ {
		*now = now.Add(time.Minute)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g9")
	}

	if len(bans.records) != 1 {
		t.Fatalf("expected one ban, got %d", len(bans.records))
	}
	ban := bans.records[0]
	if ban.ExpiresAt == nil {
		t.Fatal("auto-ban must be bounded")
	}
	if got, want := ban.ExpiresAt.Sub(*now), 7*24*time.Hour; got != want {
		t.Fatalf("ban duration = %v, want %v", got, want)
	}
	if !strings.Contains(ban.Reason, ReasonImplausibleCadence) || !strings.Contains(ban.Reason, ReasonExcessiveAttempts) {
		t.Fatalf("ban reason should list contributing flag reasons, got %q", ban.Reason)
	}
	if events.byType["actor_banned"] != 1 {
		t.Fatalf("expected one ban audit event, got %d", events.byType["actor_banned"])
	}

	active, err := uc.ActiveBan(ctx, "actor-a")
	if err != nil {
		t.Fatalf("active ban lookup: %v", err)
	}
	if active == nil {
		t.Fatal("ban should be active immediately after writing")
	}
}

func TestObserveToggleOffRecordsNothing(t *testing.T) {
	uc, attempts, flags, bans, _, now := newUseCase(stubToggles{enabled: map[string]bool{}})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		*now = now.Add(time.Minute)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
		uc.NoteAcceptedWatering(ctx, "actor-a", "g1")
	}
	if len(attempts.records) != 0 || len(flags.records) != 0 || len(bans.records) != 0 {
		t.Fatal("disabled watchdog must not write anything")
	}
}

func TestFlagToggleOffObservesWithoutFlagging(t *testing.T) {
	uc, attempts, flags, _, _, now := newUseCase(stubToggles{enabled: map[string]bool{ToggleObserve: true}})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		*now = now.Add(time.Minute)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
	}
	if len(attempts.records) != 20 {
		t.Fatalf("attempts should be recorded, got %d", len(attempts.records))
	}
	if len(flags.records) != 0 {
		t.Fatalf("flag toggle off must suppress flags, got %d", len(flags.records))
	}
}

func TestAutobanToggleOffFlagsWithoutBanning(t *testing.T) {
	toggles := stubToggles{enabled: map[string]bool{ToggleObserve: true, ToggleFlag: true}}
	uc, _, flags, bans, _, now := newUseCase(toggles)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		flags.records = append(flags.records, ports.FlagRecord{
			ActorID: "actor-a", CommunityID: "g1", Reason: ReasonImplausibleCadence, CreatedAt: *now,
		})
	}
	for i := 0; i < 16; i++ {
		*now = now.Add(time.Minute)
		uc.NoteRejectedAttempt(ctx, "actor-a", "g1")
	}
	if len(bans.records) != 0 {
		t.Fatalf("autoban off must not ban, got %d", len(bans.records))
	}
}
