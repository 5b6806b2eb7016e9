package grove

import (
	"math"
	"sync"
)

// MaxIntervalSeconds caps the watering interval regardless of size.
const MaxIntervalSeconds int64 = 600

// Curve maps tree size to the seconds that must elapse before the next
// accepted watering. The base curve is a pure function of integer size,
// so results are memoized for the process lifetime.
type Curve struct {
	mu   sync.Mutex
	memo map[int64]int64
}

func NewCurve() *Curve {
	return &Curve{memo: make(map[int64]int64)}
}

func (c *Curve) baseSeconds(size int64) int64 {
	if size < 0 {
		size = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.memo[size]; ok {
		return v
	}
	v := int64(math.Floor(math.Pow(float64(size)*0.05+5, 1.1)))
	if v > MaxIntervalSeconds {
		v = MaxIntervalSeconds
	}
	c.memo[size] = v
	return v
}

// Interval returns the cooldown seconds for a tree of the given size.
// superGrowth halves the base interval.
func (c *Curve) Interval(size int64, superGrowth bool) int64 {
	v := c.baseSeconds(size)
	if superGrowth {
		v /= 2
	}
	return v
}

// IntervalFor applies the aggregate's flags and any active fast-cooldown
// boost on top of the base curve. Deterministic for a fixed
// (size, flags, boosts, now) tuple.
func (c *Curve) IntervalFor(agg *TreeAggregate, now int64) int64 {
	v := c.Interval(agg.Size, agg.SuperGrowth)
	if ActiveBoost(agg, BoostFastCooldown, now) {
		v /= 2
	}
	if v < 0 {
		v = 0
	}
	return v
}

// NextEligibleAt is the first instant a watering can be accepted.
func (c *Curve) NextEligibleAt(agg *TreeAggregate, now int64) int64 {
	return agg.LastWateredAt + c.IntervalFor(agg, now)
}

// RemainingSeconds is the display-clamped time left until the aggregate
// becomes actionable.
func (c *Curve) RemainingSeconds(agg *TreeAggregate, now int64) int64 {
	remaining := c.NextEligibleAt(agg, now) - now
	if remaining < 0 {
		return 0
	}
	return remaining
}
