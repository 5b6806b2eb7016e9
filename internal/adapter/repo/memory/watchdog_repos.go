package memory

import (
	"context"
	"time"

	"grovetender/internal/app/ports"
)

type AttemptRepo struct {
	store *Store
}

func NewAttemptRepo(store *Store) AttemptRepo {
	return AttemptRepo{store: store}
}

func (r AttemptRepo) Record(_ context.Context, attempt ports.AttemptRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	// opportunistic purge, matching the gorm adapter
	kept := r.store.attempts[:0]
	for _, a := range r.store.attempts {
		if a.ExpiresAt.After(attempt.CreatedAt) {
			kept = append(kept, a)
		}
	}
	r.store.attempts = append(kept, attempt)
	return nil
}

func (r AttemptRepo) CountSince(_ context.Context, actorID, communityID, kind string, since time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, a := range r.store.attempts {
		if a.ActorID == actorID && a.CommunityID == communityID && a.Kind == kind && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r AttemptRepo) DistinctHoursSince(_ context.Context, actorID, kind string, since time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	hours := map[time.Time]struct{}{}
	for _, a := range r.store.attempts {
		if a.ActorID == actorID && a.Kind == kind && !a.CreatedAt.Before(since) {
			hours[a.CreatedAt.Truncate(time.Hour)] = struct{}{}
		}
	}
	return int64(len(hours)), nil
}

type FlagRepo struct {
	store *Store
}

func NewFlagRepo(store *Store) FlagRepo {
	return FlagRepo{store: store}
}

func (r FlagRepo) Record(_ context.Context, flag ports.FlagRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.flags = append(r.store.flags, flag)
	return nil
}

func (r FlagRepo) LatestSince(_ context.Context, actorID, communityID, reason string, since time.Time) (*ports.FlagRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.flags) - 1; i >= 0; i-- {
		f := r.store.flags[i]
		if f.ActorID == actorID && f.CommunityID == communityID && f.Reason == reason && !f.CreatedAt.Before(since) {
			return &f, nil
		}
	}
	return nil, nil
}

func (r FlagRepo) CountForActorSince(_ context.Context, actorID string, since time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, f := range r.store.flags {
		if f.ActorID == actorID && !f.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r FlagRepo) DistinctReasonsSince(_ context.Context, actorID string, since time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, f := range r.store.flags {
		if f.ActorID != actorID || f.CreatedAt.Before(since) {
			continue
		}
		if _, ok := seen[f.Reason]; ok {
			continue
		}
		seen[f.Reason] = struct{}{}
		out = append(out, f.Reason)
	}
	return out, nil
}

type BanRepo struct {
	store *Store
}

func NewBanRepo(store *Store) BanRepo {
	return BanRepo{store: store}
}

func (r BanRepo) Record(_ context.Context, ban ports.BanRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.bans = append(r.store.bans, ban)
	return nil
}

func (r BanRepo) ActiveForActor(_ context.Context, actorID string, now time.Time) (*ports.BanRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.bans) - 1; i >= 0; i-- {
		b := r.store.bans[i]
		if b.ActorID != actorID {
			continue
		}
		if b.ExpiresAt == nil || now.Before(*b.ExpiresAt) {
			return &b, nil
		}
	}
	return nil, nil
}
