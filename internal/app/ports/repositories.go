package ports

import (
	"context"
	"time"

	"grovetender/internal/domain/grove"
)

// TreeRepository is the single authoritative store for aggregates.
// SaveWithVersion with expectedVersion 0 creates; otherwise it is a
// conditional update that returns ErrConflict when the stored version
// no longer matches.
type TreeRepository interface {
	GetByCommunityID(ctx context.Context, communityID string) (grove.TreeAggregate, error)
	SaveWithVersion(ctx context.Context, agg grove.TreeAggregate, expectedVersion int64) error
	CountTrees(ctx context.Context) (int64, error)
	CountLarger(ctx context.Context, size int64) (int64, error)
	ListTopBySize(ctx context.Context, limit, offset int) ([]grove.TreeAggregate, error)
}

// AttemptRecord captures one notable action attempt (rejected watering,
// or an accepted one for the cadence heuristic). Rows expire and may be
// purged by the adapter at any time after ExpiresAt.
type AttemptRecord struct {
	ActorID     string
	CommunityID string
	Kind        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

type AttemptRepository interface {
	Record(ctx context.Context, attempt AttemptRecord) error
	CountSince(ctx context.Context, actorID, communityID, kind string, since time.Time) (int64, error)
	// DistinctHoursSince counts the distinct clock hours in which the actor
	// produced records of the given kind across all communities.
	DistinctHoursSince(ctx context.Context, actorID, kind string, since time.Time) (int64, error)
}

type FlagRecord struct {
	ActorID     string
	CommunityID string
	Reason      string
	CreatedAt   time.Time
}

type FlagRepository interface {
	Record(ctx context.Context, flag FlagRecord) error
	LatestSince(ctx context.Context, actorID, communityID, reason string, since time.Time) (*FlagRecord, error)
	CountForActorSince(ctx context.Context, actorID string, since time.Time) (int64, error)
	DistinctReasonsSince(ctx context.Context, actorID string, since time.Time) ([]string, error)
}

// BanRecord is global per actor. A nil ExpiresAt is a permanent ban.
type BanRecord struct {
	ActorID   string
	Reason    string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

type BanRepository interface {
	Record(ctx context.Context, ban BanRecord) error
	ActiveForActor(ctx context.Context, actorID string, now time.Time) (*BanRecord, error)
}

type EventRepository interface {
	Append(ctx context.Context, communityID string, events []grove.AuditEvent) error
	ListByCommunityID(ctx context.Context, communityID string, limit int) ([]grove.AuditEvent, error)
}
