package gormrepo

import (
	"context"
	"encoding/json"
	"time"

	"grovetender/internal/adapter/repo/gorm/model"
	"grovetender/internal/domain/grove"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepo {
	return EventRepo{db: db}
}

func (r EventRepo) Append(ctx context.Context, communityID string, events []grove.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.GroveEvent, 0, len(events))
	for _, e := range events {
		b, _ := json.Marshal(e.Payload)
		rows = append(rows, model.GroveEvent{
			CommunityID: communityID,
			Type:        e.Type,
			OccurredAt:  time.Unix(e.OccurredAt, 0),
			Payload:     b,
		})
	}
	return session(ctx, r.db).Create(&rows).Error
}

func (r EventRepo) ListByCommunityID(ctx context.Context, communityID string, limit int) ([]grove.AuditEvent, error) {
	rows := []model.GroveEvent{}
	query := session(ctx, r.db).
		Where(&model.GroveEvent{CommunityID: communityID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "occurred_at"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]grove.AuditEvent, 0, len(rows))
	for _, row := range rows {
		var payload map[string]any
		if len(row.Payload) > 0 {
			_ = json.Unmarshal(row.Payload, &payload)
		}
		out = append(out, grove.AuditEvent{
			Type:       row.Type,
			OccurredAt: row.OccurredAt.Unix(),
			Payload:    payload,
		})
	}
	return out, nil
}
