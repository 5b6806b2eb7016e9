package memory

import (
	"context"
	"sort"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

type TreeRepo struct {
	store *Store
}

func NewTreeRepo(store *Store) TreeRepo {
	return TreeRepo{store: store}
}

func (r TreeRepo) GetByCommunityID(_ context.Context, communityID string) (grove.TreeAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	agg, ok := r.store.trees[communityID]
	if !ok {
		return grove.TreeAggregate{}, ports.ErrNotFound
	}
	return cloneTree(agg), nil
}

func (r TreeRepo) SaveWithVersion(_ context.Context, agg grove.TreeAggregate, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.trees[agg.CommunityID]
	if !ok {
		if expectedVersion != 0 {
			return ports.ErrConflict
		}
		r.store.trees[agg.CommunityID] = cloneTree(agg)
		return nil
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.trees[agg.CommunityID] = cloneTree(agg)
	return nil
}

func (r TreeRepo) CountTrees(_ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.trees)), nil
}

func (r TreeRepo) CountLarger(_ context.Context, size int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, agg := range r.store.trees {
		if agg.Size > size {
			n++
		}
	}
	return n, nil
}

func (r TreeRepo) ListTopBySize(_ context.Context, limit, offset int) ([]grove.TreeAggregate, error) {
	r.store.mu.Lock()
	all := make([]grove.TreeAggregate, 0, len(r.store.trees))
	for _, agg := range r.store.trees {
		all = append(all, cloneTree(agg))
	}
	r.store.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Size != all[j].Size {
			return all[i].Size > all[j].Size
		}
		return all[i].CommunityID < all[j].CommunityID
	})
	if offset >= len(all) {
		return []grove.TreeAggregate{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
