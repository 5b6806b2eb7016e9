package grove

// boostChances gates probabilistic boost effects: being active only makes
// the draw possible, it does not guarantee the effect.
var boostChances = map[BoostKind]float64{
	BoostLuckyGrowth: 0.5,
}

// ActiveBoost reports whether an unexpired boost of the given kind exists.
func ActiveBoost(agg *TreeAggregate, kind BoostKind, now int64) bool {
	for i := range agg.Boosts {
		b := &agg.Boosts[i]
		if b.Kind == kind && now < b.StartedAt+b.DurationSeconds {
			return true
		}
	}
	return false
}

// AddBoost attaches a boost to the aggregate. An unexpired boost of the
// same kind has its duration extended additively; an expired one is reset
// to start now with the new duration, so stale windows never stack.
func AddBoost(agg *TreeAggregate, kind BoostKind, durationSeconds, now int64) {
	for i := range agg.Boosts {
		b := &agg.Boosts[i]
		if b.Kind != kind {
			continue
		}
		if now < b.StartedAt+b.DurationSeconds {
			b.DurationSeconds += durationSeconds
		} else {
			b.StartedAt = now
			b.DurationSeconds = durationSeconds
		}
		return
	}
	agg.Boosts = append(agg.Boosts, Boost{
		Kind:            kind,
		StartedAt:       now,
		DurationSeconds: durationSeconds,
	})
}

// ShouldApply draws one uniform sample against the kind's fixed chance.
// Kinds without a configured chance always apply.
func ShouldApply(r Rand, kind BoostKind) bool {
	chance, ok := boostChances[kind]
	if !ok {
		return true
	}
	return r.Float64() < chance
}
