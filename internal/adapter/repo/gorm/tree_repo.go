package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"grovetender/internal/adapter/repo/gorm/model"
	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"

	"gorm.io/gorm"
)

type TreeRepo struct {
	db *gorm.DB
}

func NewTreeRepo(db *gorm.DB) TreeRepo {
	return TreeRepo{db: db}
}

func (r TreeRepo) GetByCommunityID(ctx context.Context, communityID string) (grove.TreeAggregate, error) {
	var m model.TreeState
	if err := session(ctx, r.db).Where("community_id = ?", communityID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return grove.TreeAggregate{}, ports.ErrNotFound
		}
		return grove.TreeAggregate{}, err
	}
	return toAggregate(m)
}

// SaveWithVersion is the single conditional write for the aggregate:
// expectedVersion 0 creates, anything else updates only the row that
// still carries that version. Zero rows affected means another writer
// won; the caller re-reads and re-evaluates.
func (r TreeRepo) SaveWithVersion(ctx context.Context, agg grove.TreeAggregate, expectedVersion int64) error {
	db := session(ctx, r.db)
	m, err := toRow(agg)
	if err != nil {
		return err
	}

	if expectedVersion == 0 {
		return db.Create(&m).Error
	}

	res := db.Model(&model.TreeState{}).
		Where("community_id = ? AND version = ?", agg.CommunityID, expectedVersion).
		Updates(map[string]any{
			"size":               m.Size,
			"last_watered_at":    m.LastWateredAt,
			"last_waterer_id":    m.LastWatererID,
			"contributors":       m.Contributors,
			"boosts":             m.Boosts,
			"last_side_event_at": m.LastSideEventAt,
			"super_growth":       m.SuperGrowth,
			"premium":            m.Premium,
			"tickets":            m.Tickets,
			"version":            m.Version,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r TreeRepo) CountTrees(ctx context.Context) (int64, error) {
	var n int64
	err := session(ctx, r.db).Model(&model.TreeState{}).Count(&n).Error
	return n, err
}

func (r TreeRepo) CountLarger(ctx context.Context, size int64) (int64, error) {
	var n int64
	err := session(ctx, r.db).Model(&model.TreeState{}).Where("size > ?", size).Count(&n).Error
	return n, err
}

func (r TreeRepo) ListTopBySize(ctx context.Context, limit, offset int) ([]grove.TreeAggregate, error) {
	rows := []model.TreeState{}
	query := session(ctx, r.db).
		Order("size DESC, community_id ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]grove.TreeAggregate, 0, len(rows))
	for _, row := range rows {
		agg, err := toAggregate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

func toRow(agg grove.TreeAggregate) (model.TreeState, error) {
	contributors, err := json.Marshal(agg.Contributors)
	if err != nil {
		return model.TreeState{}, err
	}
	boosts, err := json.Marshal(agg.Boosts)
	if err != nil {
		return model.TreeState{}, err
	}
	return model.TreeState{
		CommunityID:     agg.CommunityID,
		Size:            agg.Size,
		LastWateredAt:   agg.LastWateredAt,
		LastWatererID:   agg.LastWatererID,
		Contributors:    contributors,
		Boosts:          boosts,
		LastSideEventAt: agg.LastSideEventAt,
		SuperGrowth:     agg.SuperGrowth,
		Premium:         agg.Premium,
		Tickets:         agg.Tickets,
		Version:         agg.Version,
	}, nil
}

func toAggregate(m model.TreeState) (grove.TreeAggregate, error) {
	agg := grove.TreeAggregate{
		CommunityID:     m.CommunityID,
		Size:            m.Size,
		LastWateredAt:   m.LastWateredAt,
		LastWatererID:   m.LastWatererID,
		Contributors:    map[string]grove.Contributor{},
		LastSideEventAt: m.LastSideEventAt,
		SuperGrowth:     m.SuperGrowth,
		Premium:         m.Premium,
		Tickets:         m.Tickets,
		Version:         m.Version,
	}
	if len(m.Contributors) > 0 {
		if err := json.Unmarshal(m.Contributors, &agg.Contributors); err != nil {
			return grove.TreeAggregate{}, err
		}
	}
	if len(m.Boosts) > 0 {
		if err := json.Unmarshal(m.Boosts, &agg.Boosts); err != nil {
			return grove.TreeAggregate{}, err
		}
	}
	return agg, nil
}
