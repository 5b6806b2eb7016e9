package water

import (
	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

type Request struct {
	CommunityID string
	ActorID     string
	SurfaceID   string
}

type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeBanned   Outcome = "banned"
)

type SideEventInfo struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

type Response struct {
	Outcome        Outcome             `json:"outcome"`
	Reason         grove.RejectReason  `json:"reason,omitempty"`
	NextEligibleAt int64               `json:"next_eligible_at,omitempty"`
	Tree           grove.TreeAggregate `json:"tree"`
	View           grove.View          `json:"view"`
	SideEvent      *SideEventInfo      `json:"side_event,omitempty"`
	BonusTicket    bool                `json:"bonus_ticket,omitempty"`
	Ban            *ports.BanRecord    `json:"ban,omitempty"`

	// set on the accept path only; carried internally between the tx and
	// the post-commit side effects
	dispatched   grove.SideEventSpec
	hasSideEvent bool
}
