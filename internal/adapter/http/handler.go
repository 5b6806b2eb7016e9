package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"grovetender/internal/app/booster"
	"grovetender/internal/app/history"
	"grovetender/internal/app/plant"
	"grovetender/internal/app/ports"
	"grovetender/internal/app/sideevent"
	"grovetender/internal/app/stateview"
	"grovetender/internal/app/water"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const actorIDHeader = "X-Actor-ID"

// banChecker is the slice of the watchdog the transport needs: bans are
// enforced at the door, before any use case runs.
type banChecker interface {
	ActiveBan(ctx context.Context, actorID string) (*ports.BanRecord, error)
}

type Handler struct {
	WaterUC   *water.UseCase
	EventUC   *sideevent.UseCase
	PlantUC   plant.UseCase
	BoostUC   booster.UseCase
	ViewUC    stateview.UseCase
	HistoryUC history.UseCase
	Bans      banChecker
	KPI       kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	g := s.Group("/api/grove")
	g.POST("/plant", h.plant)
	g.POST("/water", h.water)
	g.POST("/event/resolve", h.resolveEvent)
	g.POST("/boost", h.boost)
	g.GET("/status", h.status)
	g.GET("/leaderboard", h.leaderboard)
	g.GET("/history", h.history)

	s.GET("/ops/kpi", h.kpi)
}

type plantRequest struct {
	CommunityID string `json:"community_id"`
}

type waterRequest struct {
	CommunityID string `json:"community_id"`
	SurfaceID   string `json:"surface_id"`
}

type resolveEventRequest struct {
	CommunityID string `json:"community_id"`
	SurfaceID   string `json:"surface_id"`
	EventID     string `json:"event_id"`
	Success     bool   `json:"success"`
}

type boostRequest struct {
	CommunityID     string `json:"community_id"`
	SurfaceID       string `json:"surface_id,omitempty"`
	Kind            string `json:"kind"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (h Handler) plant(c context.Context, ctx *app.RequestContext) {
	actorID, ok := h.admitActor(c, ctx)
	if !ok {
		return
	}
	var body plantRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.PlantUC.Execute(c, plant.Request{CommunityID: body.CommunityID, ActorID: actorID})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) water(c context.Context, ctx *app.RequestContext) {
	actorID, ok := h.admitActor(c, ctx)
	if !ok {
		return
	}
	var body waterRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.WaterUC.Execute(c, water.Request{
		CommunityID: body.CommunityID,
		ActorID:     actorID,
		SurfaceID:   body.SurfaceID,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	switch resp.Outcome {
	case water.OutcomeBanned:
		ctx.JSON(consts.StatusForbidden, resp)
	case water.OutcomeRejected:
		ctx.JSON(consts.StatusConflict, resp)
	default:
		ctx.JSON(consts.StatusOK, resp)
	}
}

func (h Handler) resolveEvent(c context.Context, ctx *app.RequestContext) {
	actorID, ok := h.admitActor(c, ctx)
	if !ok {
		return
	}
	var body resolveEventRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.EventUC.Resolve(c, sideevent.ResolveRequest{
		CommunityID: body.CommunityID,
		ActorID:     actorID,
		SurfaceID:   body.SurfaceID,
		EventID:     body.EventID,
		Success:     body.Success,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) boost(c context.Context, ctx *app.RequestContext) {
	actorID, ok := h.admitActor(c, ctx)
	if !ok {
		return
	}
	var body boostRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.BoostUC.Execute(c, booster.Request{
		CommunityID:     body.CommunityID,
		ActorID:         actorID,
		SurfaceID:       body.SurfaceID,
		Kind:            body.Kind,
		DurationSeconds: body.DurationSeconds,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) status(c context.Context, ctx *app.RequestContext) {
	resp, err := h.ViewUC.Status(c, string(ctx.Query("community_id")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) leaderboard(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	offset, _ := strconv.Atoi(string(ctx.Query("offset")))
	resp, err := h.ViewUC.Leaderboard(c, stateview.LeaderboardRequest{
		CommunityID: string(ctx.Query("community_id")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	resp, err := h.HistoryUC.Execute(c, history.Request{
		CommunityID: string(ctx.Query("community_id")),
		Limit:       limit,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

var ErrMissingActorHeader = errors.New("missing x-actor-id header")

// admitActor authenticates the actor header and applies the global ban
// gate: a banned actor gets 403 with the restricted view regardless of
// which operation was invoked. Writes the response itself when admission
// fails.
func (h Handler) admitActor(c context.Context, ctx *app.RequestContext) (string, bool) {
	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, err)
		return "", false
	}
	if h.Bans == nil {
		return actorID, true
	}
	ban, err := h.Bans.ActiveBan(c, actorID)
	if err != nil {
		writeError(ctx, err)
		return "", false
	}
	if ban != nil {
		ctx.JSON(consts.StatusForbidden, map[string]any{
			"outcome": "banned",
			"view":    stateview.RestrictedView(ban),
			"ban":     ban,
		})
		return "", false
	}
	return actorID, true
}

func requireActor(ctx *app.RequestContext) (string, error) {
	actorID := strings.TrimSpace(string(ctx.GetHeader(actorIDHeader)))
	if actorID == "" {
		return "", ErrMissingActorHeader
	}
	return actorID, nil
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ErrMissingActorHeader):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_actor_id", err.Error())
	case errors.Is(err, plant.ErrAlreadyPlanted):
		writeErrorBody(ctx, consts.StatusConflict, "already_planted", err.Error())
	case errors.Is(err, sideevent.ErrNoPendingEvent):
		writeErrorBody(ctx, consts.StatusGone, "no_pending_event", err.Error())
	case errors.Is(err, booster.ErrUnknownKind):
		writeErrorBody(ctx, consts.StatusBadRequest, "unknown_boost_kind", err.Error())
	case errors.Is(err, water.ErrInvalidRequest),
		errors.Is(err, plant.ErrInvalidRequest),
		errors.Is(err, booster.ErrInvalidRequest),
		errors.Is(err, sideevent.ErrInvalidRequest),
		errors.Is(err, stateview.ErrInvalidRequest),
		errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		// infrastructure failure: degrade to a generic retry message
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "the grove is unreachable right now, try again")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
