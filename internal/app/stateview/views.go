package stateview

import (
	"fmt"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

// CanonicalView is the steady-state rendering of the tree: its size,
// contributor count, and either a "water me" prompt or the remaining
// cooldown.
func CanonicalView(agg *grove.TreeAggregate, now int64, curve *grove.Curve) grove.View {
	remaining := curve.RemainingSeconds(agg, now)
	if remaining > 0 {
		return grove.View{
			Kind:        grove.ViewCooldown,
			Title:       fmt.Sprintf("%s's tree — %dcm", agg.CommunityID, agg.Size),
			Description: fmt.Sprintf("The soil is still damp. Ready in %ds.", remaining),
			Components: []grove.ViewComponent{
				{Label: "Water", CustomID: "grove.water", Disabled: true},
			},
		}
	}
	return grove.View{
		Kind:        grove.ViewCanonical,
		Title:       fmt.Sprintf("%s's tree — %dcm", agg.CommunityID, agg.Size),
		Description: fmt.Sprintf("%d gardeners have watered this tree. It is ready for more.", len(agg.Contributors)),
		Components: []grove.ViewComponent{
			{Label: "Water", CustomID: "grove.water"},
		},
	}
}

// RejectionView is the transient explanatory view shown after a refused
// watering; it auto-reverts to the canonical view.
func RejectionView(reason grove.RejectReason, nextEligibleAt, now int64) grove.View {
	switch reason {
	case grove.RejectSameActor:
		return grove.View{
			Kind:        grove.ViewRejection,
			Title:       "Let someone else water it",
			Description: "You watered this tree last. Another gardener has to take a turn first.",
		}
	default:
		remaining := nextEligibleAt - now
		if remaining < 0 {
			remaining = 0
		}
		return grove.View{
			Kind:        grove.ViewRejection,
			Title:       "Too soon",
			Description: fmt.Sprintf("The tree is still drinking. Try again in %ds.", remaining),
		}
	}
}

// SideEventView is the prompt for a pending side-event.
func SideEventView(spec grove.SideEventSpec, eventID string) grove.View {
	return grove.View{
		Kind:        grove.ViewSideEvent,
		Title:       spec.Title,
		Description: spec.Prompt,
		Components: []grove.ViewComponent{
			{Label: "Go!", CustomID: "grove.event." + eventID},
		},
	}
}

// SideEventResultView is shown briefly after a side-event resolves.
func SideEventResultView(spec grove.SideEventSpec, success bool) grove.View {
	if success {
		return grove.View{
			Kind:        grove.ViewSideEvent,
			Title:       spec.Title,
			Description: fmt.Sprintf("Success! The tree grew %dcm and earned %d tickets.", spec.SuccessSize, spec.SuccessTickets),
		}
	}
	return grove.View{
		Kind:        grove.ViewSideEvent,
		Title:       spec.Title,
		Description: "Too slow. The tree took a small hit.",
	}
}

// PurchaseView confirms a boost purchase before reverting to canonical.
func PurchaseView(kind grove.BoostKind, durationSeconds int64) grove.View {
	return grove.View{
		Kind:        grove.ViewPurchase,
		Title:       "Boost active",
		Description: fmt.Sprintf("%s is now running for %ds.", kind, durationSeconds),
	}
}

// RestrictedView replaces normal output for banned actors, independent of
// which operation was invoked.
func RestrictedView(ban *ports.BanRecord) grove.View {
	desc := "Your access to the grove has been restricted."
	if ban != nil && ban.ExpiresAt != nil {
		desc = fmt.Sprintf("Your access to the grove has been restricted until %s.", ban.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	return grove.View{
		Kind:        grove.ViewRestricted,
		Title:       "Access restricted",
		Description: desc,
	}
}

// ErrorView is the generic degraded rendering for infrastructure
// failures.
func ErrorView() grove.View {
	return grove.View{
		Kind:        grove.ViewError,
		Title:       "Something went wrong",
		Description: "The grove is unreachable right now. Try again in a moment.",
	}
}
