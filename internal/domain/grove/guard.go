package grove

// Evaluate runs the watering state machine for one attempt. The
// same-actor lock is checked first and is independent of elapsed time:
// even a fully cooled tree rejects the actor who watered it last, unless
// allowSelf overrides it (developer/test mode).
func Evaluate(agg *TreeAggregate, actorID string, now int64, curve *Curve, allowSelf bool) Decision {
	next := curve.NextEligibleAt(agg, now)
	if !allowSelf && agg.LastWatererID != "" && agg.LastWatererID == actorID {
		return Decision{Reason: RejectSameActor, NextEligibleAt: next}
	}
	if now < next {
		return Decision{Reason: RejectCooldown, NextEligibleAt: next}
	}
	return Decision{Accepted: true}
}

// Apply performs the accept-path mutation: exactly +1 size, watering
// bookkeeping, contributor upsert, and a version bump for the optimistic
// write. Callers persist with SaveWithVersion against the pre-bump
// version so concurrent winners are detected, not overwritten.
func Apply(agg *TreeAggregate, actorID string, now int64) {
	agg.Size++
	agg.LastWateredAt = now
	agg.LastWatererID = actorID
	if agg.Contributors == nil {
		agg.Contributors = make(map[string]Contributor)
	}
	c := agg.Contributors[actorID]
	c.Count++
	c.LastWateredAt = now
	agg.Contributors[actorID] = c
	agg.Version++
}
