package grove

// SideEventSpec describes one entry of the side-event catalog: how the
// tree and ticket pool move on each outcome, and how long the prompt
// stays open before the timeout outcome (always the failure branch)
// is applied.
type SideEventSpec struct {
	Kind           string
	PremiumOnly    bool
	SuccessSize    int64
	FailureSize    int64
	SuccessTickets int64
	FailureTickets int64
	TimeoutSeconds int64
	Title          string
	Prompt         string
}

var sideEventCatalog = []SideEventSpec{
	{
		Kind:           "squirrel_chase",
		SuccessSize:    2,
		FailureSize:    1,
		SuccessTickets: 3,
		FailureTickets: 1,
		TimeoutSeconds: 10,
		Title:          "A squirrel!",
		Prompt:         "A squirrel is gnawing at the trunk. Chase it off before it does damage.",
	},
	{
		Kind:           "golden_ornament",
		PremiumOnly:    true,
		SuccessSize:    3,
		FailureSize:    0,
		SuccessTickets: 5,
		FailureTickets: 0,
		TimeoutSeconds: 10,
		Title:          "A golden ornament",
		Prompt:         "Something glints between the branches. Reach for it.",
	},
}

// EligibleSideEvents returns the catalog entries available to the
// aggregate's entitlement tier.
func EligibleSideEvents(agg *TreeAggregate) []SideEventSpec {
	out := make([]SideEventSpec, 0, len(sideEventCatalog))
	for _, spec := range sideEventCatalog {
		if spec.PremiumOnly && !agg.Premium {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// SideEventSpecByKind looks up a catalog entry.
func SideEventSpecByKind(kind string) (SideEventSpec, bool) {
	for _, spec := range sideEventCatalog {
		if spec.Kind == kind {
			return spec, true
		}
	}
	return SideEventSpec{}, false
}

// ApplySideEventOutcome mutates the aggregate for a resolved side-event.
// Size and tickets are clamped at zero on the failure branch; the version
// is bumped for the optimistic write.
func ApplySideEventOutcome(agg *TreeAggregate, spec SideEventSpec, success bool) {
	if success {
		agg.Size += spec.SuccessSize
		agg.Tickets += spec.SuccessTickets
	} else {
		agg.Size -= spec.FailureSize
		if agg.Size < 0 {
			agg.Size = 0
		}
		agg.Tickets -= spec.FailureTickets
		if agg.Tickets < 0 {
			agg.Tickets = 0
		}
	}
	agg.Version++
}
