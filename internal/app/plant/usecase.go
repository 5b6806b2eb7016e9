// Package plant creates the one aggregate a community owns.
package plant

import (
	"context"
	"errors"
	"strings"
	"time"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

var (
	ErrInvalidRequest = errors.New("invalid plant request")
	ErrAlreadyPlanted = errors.New("community already has a tree")
)

type UseCase struct {
	Trees  ports.TreeRepository
	Events ports.EventRepository
	Now    func() time.Time
}

type Request struct {
	CommunityID string
	ActorID     string
}

type Response struct {
	Tree grove.TreeAggregate `json:"tree"`
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.CommunityID = strings.TrimSpace(req.CommunityID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	if req.CommunityID == "" || req.ActorID == "" {
		return Response{}, ErrInvalidRequest
	}

	if _, err := u.Trees.GetByCommunityID(ctx, req.CommunityID); err == nil {
		return Response{}, ErrAlreadyPlanted
	} else if !errors.Is(err, ports.ErrNotFound) {
		return Response{}, err
	}

	agg := grove.TreeAggregate{
		CommunityID:  req.CommunityID,
		Contributors: map[string]grove.Contributor{},
		Version:      1,
	}
	if err := u.Trees.SaveWithVersion(ctx, agg, 0); err != nil {
		return Response{}, err
	}
	if u.Events != nil {
		now := u.now()
		_ = u.Events.Append(ctx, req.CommunityID, []grove.AuditEvent{{
			Type:       "tree_planted",
			OccurredAt: now.Unix(),
			Payload:    map[string]any{"actor_id": req.ActorID},
		}})
	}
	return Response{Tree: agg}, nil
}

func (u UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
