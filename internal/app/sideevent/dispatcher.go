// Package sideevent decides when an accepted watering is interrupted by a
// randomized secondary interaction, tracks the open prompt per surface,
// and settles its outcome (explicit follow-up or timeout).
package sideevent

import (
	"grovetender/internal/domain/grove"
)

const (
	DefaultChance            = 0.4
	DefaultMinSpacingSeconds = 300
)

// Dispatcher makes the per-watering dispatch decision. It only decides;
// the caller folds LastSideEventAt into the same conditional write as the
// watering itself so a lost race never double-fires.
type Dispatcher struct {
	rand              grove.Rand
	chance            float64
	minSpacingSeconds int64
}

// NewDispatcher builds a dispatcher with explicit tuning. A chance of 0
// disables dispatch entirely; a spacing of 0 removes the spacing floor.
func NewDispatcher(r grove.Rand, chance float64, minSpacingSeconds int64) Dispatcher {
	return Dispatcher{rand: r, chance: chance, minSpacingSeconds: minSpacingSeconds}
}

// DefaultDispatcher applies the stock tuning.
func DefaultDispatcher(r grove.Rand) Dispatcher {
	return NewDispatcher(r, DefaultChance, DefaultMinSpacingSeconds)
}

// Decide draws one uniform sample and, spacing permitting, picks
// uniformly among the side-events eligible for the aggregate's tier.
func (d Dispatcher) Decide(agg *grove.TreeAggregate, now int64) (grove.SideEventSpec, bool) {
	if d.chance <= 0 {
		return grove.SideEventSpec{}, false
	}
	if now-agg.LastSideEventAt < d.minSpacingSeconds {
		return grove.SideEventSpec{}, false
	}
	if d.rand.Float64() >= d.chance {
		return grove.SideEventSpec{}, false
	}
	eligible := grove.EligibleSideEvents(agg)
	if len(eligible) == 0 {
		return grove.SideEventSpec{}, false
	}
	idx := int(d.rand.Float64() * float64(len(eligible)))
	if idx >= len(eligible) {
		idx = len(eligible) - 1
	}
	return eligible[idx], true
}
