package memory

import (
	"context"

	"grovetender/internal/domain/grove"
)

type EventRepo struct {
	store *Store
}

func NewEventRepo(store *Store) EventRepo {
	return EventRepo{store: store}
}

func (r EventRepo) Append(_ context.Context, communityID string, events []grove.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[communityID] = append(r.store.events[communityID], events...)
	return nil
}

func (r EventRepo) ListByCommunityID(_ context.Context, communityID string, limit int) ([]grove.AuditEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := r.store.events[communityID]
	// newest first
	out := make([]grove.AuditEvent, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
