// Package memory provides in-process repository adapters. They back unit
// and integration tests and mirror the conflict semantics of the gorm
// adapters exactly.
package memory

import (
	"sync"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	trees    map[string]grove.TreeAggregate
	attempts []ports.AttemptRecord
	flags    []ports.FlagRecord
	bans     []ports.BanRecord
	events   map[string][]grove.AuditEvent
}

func NewStore() *Store {
	return &Store{
		trees:  make(map[string]grove.TreeAggregate),
		events: make(map[string][]grove.AuditEvent),
	}
}

// SeedTree installs an aggregate directly, bypassing version checks.
func (s *Store) SeedTree(agg grove.TreeAggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees[agg.CommunityID] = cloneTree(agg)
}

// cloneTree keeps map/slice fields from leaking shared references between
// the store and callers.
func cloneTree(agg grove.TreeAggregate) grove.TreeAggregate {
	out := agg
	out.Contributors = make(map[string]grove.Contributor, len(agg.Contributors))
	for k, v := range agg.Contributors {
		out.Contributors[k] = v
	}
	out.Boosts = append([]grove.Boost(nil), agg.Boosts...)
	return out
}
