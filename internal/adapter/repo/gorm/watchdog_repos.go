package gormrepo

import (
	"context"
	"errors"
	"time"

	"grovetender/internal/adapter/repo/gorm/model"
	"grovetender/internal/app/ports"

	"gorm.io/gorm"
)

type AttemptRepo struct {
	db *gorm.DB
}

func NewAttemptRepo(db *gorm.DB) AttemptRepo {
	return AttemptRepo{db: db}
}

func (r AttemptRepo) Record(ctx context.Context, attempt ports.AttemptRecord) error {
	db := session(ctx, r.db)
	// opportunistic purge keeps the short-lived table from growing unbounded
	db.Where("expires_at <= ?", attempt.CreatedAt).Delete(&model.AttemptRecord{})

	row := model.AttemptRecord{
		ActorID:     attempt.ActorID,
		CommunityID: attempt.CommunityID,
		Kind:        attempt.Kind,
		CreatedAt:   attempt.CreatedAt,
		ExpiresAt:   attempt.ExpiresAt,
	}
	return db.Create(&row).Error
}

func (r AttemptRepo) CountSince(ctx context.Context, actorID, communityID, kind string, since time.Time) (int64, error) {
	var n int64
	err := session(ctx, r.db).Model(&model.AttemptRecord{}).
		Where("actor_id = ? AND community_id = ? AND kind = ? AND created_at >= ?", actorID, communityID, kind, since).
		Count(&n).Error
	return n, err
}

func (r AttemptRepo) DistinctHoursSince(ctx context.Context, actorID, kind string, since time.Time) (int64, error) {
	var n int64
	err := session(ctx, r.db).Model(&model.AttemptRecord{}).
		Select("COUNT(DISTINCT date_trunc('hour', created_at))").
		Where("actor_id = ? AND kind = ? AND created_at >= ?", actorID, kind, since).
		Scan(&n).Error
	return n, err
}

type FlagRepo struct {
	db *gorm.DB
}

func NewFlagRepo(db *gorm.DB) FlagRepo {
	return FlagRepo{db: db}
}

func (r FlagRepo) Record(ctx context.Context, flag ports.FlagRecord) error {
	row := model.FlagRecord{
		ActorID:     flag.ActorID,
		CommunityID: flag.CommunityID,
		Reason:      flag.Reason,
		CreatedAt:   flag.CreatedAt,
	}
	return session(ctx, r.db).Create(&row).Error
}

func (r FlagRepo) LatestSince(ctx context.Context, actorID, communityID, reason string, since time.Time) (*ports.FlagRecord, error) {
	var row model.FlagRecord
	err := session(ctx, r.db).
		Where("actor_id = ? AND community_id = ? AND reason = ? AND created_at >= ?", actorID, communityID, reason, since).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ports.FlagRecord{
		ActorID:     row.ActorID,
		CommunityID: row.CommunityID,
		Reason:      row.Reason,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func (r FlagRepo) CountForActorSince(ctx context.Context, actorID string, since time.Time) (int64, error) {
	var n int64
	err := session(ctx, r.db).Model(&model.FlagRecord{}).
		Where("actor_id = ? AND created_at >= ?", actorID, since).
		Count(&n).Error
	return n, err
}

func (r FlagRepo) DistinctReasonsSince(ctx context.Context, actorID string, since time.Time) ([]string, error) {
	out := []string{}
	err := session(ctx, r.db).Model(&model.FlagRecord{}).
		Distinct("reason").
		Where("actor_id = ? AND created_at >= ?", actorID, since).
		Order("reason").
		Pluck("reason", &out).Error
	return out, err
}

type BanRepo struct {
	db *gorm.DB
}

func NewBanRepo(db *gorm.DB) BanRepo {
	return BanRepo{db: db}
}

func (r BanRepo) Record(ctx context.Context, ban ports.BanRecord) error {
	row := model.BanRecord{
		ActorID:   ban.ActorID,
		Reason:    ban.Reason,
		CreatedAt: ban.CreatedAt,
		ExpiresAt: ban.ExpiresAt,
	}
	return session(ctx, r.db).Create(&row).Error
}

func (r BanRepo) ActiveForActor(ctx context.Context, actorID string, now time.Time) (*ports.BanRecord, error) {
	var row model.BanRecord
	err := session(ctx, r.db).
		Where("actor_id = ? AND (expires_at IS NULL OR expires_at > ?)", actorID, now).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ports.BanRecord{
		ActorID:   row.ActorID,
		Reason:    row.Reason,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}
