package grove

// TreeAggregate is the persisted root entity for one community's tree.
// All mutations go through the guard's accept path and are written back
// with an optimistic version check.
type TreeAggregate struct {
	CommunityID     string                 `json:"community_id"`
	Size            int64                  `json:"size"`
	LastWateredAt   int64                  `json:"last_watered_at"`
	LastWatererID   string                 `json:"last_waterer_id"`
	Contributors    map[string]Contributor `json:"contributors"`
	Boosts          []Boost                `json:"boosts,omitempty"`
	LastSideEventAt int64                  `json:"last_side_event_at"`
	SuperGrowth     bool                   `json:"super_growth"`
	Premium         bool                   `json:"premium"`
	Tickets         int64                  `json:"tickets"`
	Version         int64                  `json:"version"`
}

// Contributor tracks per-actor counters scoped to one aggregate.
// Entries are created on first accepted watering and never deleted.
type Contributor struct {
	Count         int64 `json:"count"`
	LastWateredAt int64 `json:"last_watered_at"`
}

type BoostKind string

const (
	// BoostFastCooldown halves the watering interval while active.
	BoostFastCooldown BoostKind = "fast_cooldown"
	// BoostLuckyGrowth gives a chance of a bonus ticket per accepted watering.
	BoostLuckyGrowth BoostKind = "lucky_growth"
)

// Boost is a time-bounded modifier entry. Expiry is computed from
// StartedAt+DurationSeconds, never stored; entries are appended or have
// their duration extended, never removed.
type Boost struct {
	Kind            BoostKind `json:"kind"`
	StartedAt       int64     `json:"started_at"`
	DurationSeconds int64     `json:"duration_seconds"`
}

type RejectReason string

const (
	RejectSameActor RejectReason = "same_actor"
	RejectCooldown  RejectReason = "cooldown"
)

// Decision is the outcome of evaluating one watering attempt against the
// aggregate's current state.
type Decision struct {
	Accepted       bool
	Reason         RejectReason
	NextEligibleAt int64
}

// Rand is the injectable uniform sample source used for probabilistic
// boosts and side-event dispatch. Float64 returns a value in [0, 1).
type Rand interface {
	Float64() float64
}

// AuditEvent is an append-only log entry for notable aggregate activity:
// waterings, side-events, boost purchases, and flag/ban decisions.
type AuditEvent struct {
	Type       string         `json:"type"`
	OccurredAt int64          `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type ViewKind string

const (
	ViewCanonical  ViewKind = "canonical"
	ViewCooldown   ViewKind = "cooldown"
	ViewRejection  ViewKind = "rejection"
	ViewSideEvent  ViewKind = "side_event"
	ViewPurchase   ViewKind = "purchase"
	ViewRestricted ViewKind = "restricted"
	ViewError      ViewKind = "error"
)

// View is the declarative rendering payload handed to the dispatch
// framework. The core never talks to the transport directly.
type View struct {
	Kind        ViewKind        `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Components  []ViewComponent `json:"components,omitempty"`
}

type ViewComponent struct {
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
	Disabled bool   `json:"disabled,omitempty"`
}
