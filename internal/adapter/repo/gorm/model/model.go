// Package model holds the persistence row types for the gorm adapter.
// Contributors and boosts live as JSONB on the tree row: the aggregate is
// a single authoritative document and is always written as a whole.
package model

import "time"

type TreeState struct {
	CommunityID     string `gorm:"column:community_id;primaryKey"`
	Size            int64  `gorm:"column:size"`
	LastWateredAt   int64  `gorm:"column:last_watered_at"`
	LastWatererID   string `gorm:"column:last_waterer_id"`
	Contributors    []byte `gorm:"column:contributors"`
	Boosts          []byte `gorm:"column:boosts"`
	LastSideEventAt int64  `gorm:"column:last_side_event_at"`
	SuperGrowth     bool   `gorm:"column:super_growth"`
	Premium         bool   `gorm:"column:premium"`
	Tickets         int64  `gorm:"column:tickets"`
	Version         int64  `gorm:"column:version"`
	UpdatedAt       time.Time
}

func (TreeState) TableName() string { return "tree_states" }

type AttemptRecord struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID     string    `gorm:"column:actor_id;index:idx_attempts_actor"`
	CommunityID string    `gorm:"column:community_id"`
	Kind        string    `gorm:"column:kind"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (AttemptRecord) TableName() string { return "attempt_records" }

type FlagRecord struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID     string    `gorm:"column:actor_id;index:idx_flags_actor"`
	CommunityID string    `gorm:"column:community_id"`
	Reason      string    `gorm:"column:reason"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (FlagRecord) TableName() string { return "flag_records" }

type BanRecord struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID   string     `gorm:"column:actor_id;index:idx_bans_actor"`
	Reason    string     `gorm:"column:reason"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
}

func (BanRecord) TableName() string { return "ban_records" }

type GroveEvent struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CommunityID string    `gorm:"column:community_id;index:idx_events_community"`
	Type        string    `gorm:"column:type"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
	Payload     []byte    `gorm:"column:payload"`
}

func (GroveEvent) TableName() string { return "grove_events" }
