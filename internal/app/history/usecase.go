// Package history exposes the audit event log for a community.
package history

import (
	"context"
	"errors"
	"strings"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

var ErrInvalidRequest = errors.New("invalid history request")

const defaultLimit = 50

type UseCase struct {
	Events ports.EventRepository
}

type Request struct {
	CommunityID string
	Limit       int
}

type Response struct {
	Events []grove.AuditEvent `json:"events"`
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.CommunityID = strings.TrimSpace(req.CommunityID)
	if req.CommunityID == "" {
		return Response{}, ErrInvalidRequest
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = defaultLimit
	}
	events, err := u.Events.ListByCommunityID(ctx, req.CommunityID, req.Limit)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return Response{Events: []grove.AuditEvent{}}, nil
		}
		return Response{}, err
	}
	return Response{Events: events}, nil
}
