package httpadapter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	repomemory "grovetender/internal/adapter/repo/memory"
	"grovetender/internal/app/booster"
	"grovetender/internal/app/history"
	"grovetender/internal/app/plant"
	"grovetender/internal/app/ports"
	"grovetender/internal/app/sideevent"
	"grovetender/internal/app/stateview"
	"grovetender/internal/app/watchdog"
	"grovetender/internal/domain/grove"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

func TestRequireActor_FromHeader(t *testing.T) {
	ctx := &app.RequestContext{}
	ctx.Request.Header.Set(actorIDHeader, "actor-1")

	actorID, err := requireActor(ctx)
	if err != nil {
		t.Fatalf("requireActor error: %v", err)
	}
	if actorID != "actor-1" {
		t.Fatalf("unexpected actor id: %q", actorID)
	}
}

func TestRequireActor_MissingHeader(t *testing.T) {
	ctx := &app.RequestContext{}
	_, err := requireActor(ctx)
	if err != ErrMissingActorHeader {
		t.Fatalf("expected ErrMissingActorHeader, got %v", err)
	}
}

func TestRequireActor_BlankHeader(t *testing.T) {
	ctx := &app.RequestContext{}
	ctx.Request.Header.Set(actorIDHeader, "   ")
	if _, err := requireActor(ctx); err != ErrMissingActorHeader {
		t.Fatalf("expected ErrMissingActorHeader, got %v", err)
	}
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	var body map[string]map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	code, _ := body["error"]["code"].(string)
	return code
}

func TestWriteError_AlreadyPlanted(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, plant.ErrAlreadyPlanted)

	if got, want := ctx.Response.StatusCode(), consts.StatusConflict; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got, want := errorCode(t, ctx), "already_planted"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
}

func TestWriteError_NoPendingEvent(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, sideevent.ErrNoPendingEvent)

	if got, want := ctx.Response.StatusCode(), consts.StatusGone; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got, want := errorCode(t, ctx), "no_pending_event"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
}

func TestWriteError_UnknownBoostKind(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, booster.ErrUnknownKind)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got, want := errorCode(t, ctx), "unknown_boost_kind"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
}

func TestWriteError_NotFound(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, ports.ErrNotFound)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestWriteError_UnexpectedFailureDegrades(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, context.DeadlineExceeded)

	if got, want := ctx.Response.StatusCode(), consts.StatusInternalServerError; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got, want := errorCode(t, ctx), "internal_error"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["error"]["message"] == context.DeadlineExceeded.Error() {
		t.Fatal("internal error details must not leak to the client")
	}
}

func TestPlantHandler_CreatesTree(t *testing.T) {
	store := repomemory.NewStore()
	h := Handler{
		PlantUC: plant.UseCase{
			Trees:  repomemory.NewTreeRepo(store),
			Events: repomemory.NewEventRepo(store),
			Now:    func() time.Time { return time.Unix(1_700_000_000, 0) },
		},
	}
	ctx := &app.RequestContext{}
	ctx.Request.Header.Set(actorIDHeader, "actor-1")
	ctx.Request.SetBody([]byte(`{"community_id":"g1"}`))

	h.plant(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusCreated; got != want {
		t.Fatalf("status mismatch: got=%d want=%d body=%s", got, want, ctx.Response.Body())
	}
	var resp plant.Response
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Tree.CommunityID != "g1" || resp.Tree.Version != 1 {
		t.Fatalf("unexpected tree: %+v", resp.Tree)
	}
}

func TestPlantHandler_MissingActorHeader(t *testing.T) {
	h := Handler{}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"community_id":"g1"}`))

	h.plant(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got, want := errorCode(t, ctx), "missing_actor_id"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
}

func TestStatusHandler_UnknownCommunity(t *testing.T) {
	store := repomemory.NewStore()
	h := Handler{
		ViewUC: stateview.UseCase{
			Trees: repomemory.NewTreeRepo(store),
			Curve: grove.NewCurve(),
			Now:   func() time.Time { return time.Unix(1_700_000_000, 0) },
		},
	}
	ctx := &app.RequestContext{}
	ctx.QueryArgs().Set("community_id", "missing")

	h.status(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestHistoryHandler_ListsEvents(t *testing.T) {
	store := repomemory.NewStore()
	events := repomemory.NewEventRepo(store)
	if err := events.Append(context.Background(), "g1", []grove.AuditEvent{
		{Type: "tree_planted", OccurredAt: 1000},
		{Type: "tree_watered", OccurredAt: 1001},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := Handler{HistoryUC: history.UseCase{Events: events}}
	ctx := &app.RequestContext{}
	ctx.QueryArgs().Set("community_id", "g1")

	h.history(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var resp history.Response
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].Type != "tree_watered" {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
}

func bannedFixture(t *testing.T, store *repomemory.Store, actorID string) *watchdog.UseCase {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	banRepo := repomemory.NewBanRepo(store)
	expires := now.Add(time.Hour)
	if err := banRepo.Record(context.Background(), ports.BanRecord{
		ActorID: actorID, Reason: "test", CreatedAt: now, ExpiresAt: &expires,
	}); err != nil {
		t.Fatalf("seed ban: %v", err)
	}
	return &watchdog.UseCase{
		Bans: banRepo,
		Now:  func() time.Time { return now },
	}
}

func TestBannedActorGets403FromEveryMutation(t *testing.T) {
	store := repomemory.NewStore()
	h := Handler{
		PlantUC: plant.UseCase{
			Trees:  repomemory.NewTreeRepo(store),
			Events: repomemory.NewEventRepo(store),
		},
		BoostUC: booster.UseCase{
			TxManager: repomemory.NewTxManager(store),
			Trees:     repomemory.NewTreeRepo(store),
			Events:    repomemory.NewEventRepo(store),
			Curve:     grove.NewCurve(),
		},
		Bans: bannedFixture(t, store, "actor-1"),
	}
	store.SeedTree(grove.TreeAggregate{CommunityID: "g1", Version: 1})

	calls := []struct {
		name string
		fn   func(context.Context, *app.RequestContext)
		body string
	}{
		{"plant", h.plant, `{"community_id":"g2"}`},
		{"boost", h.boost, `{"community_id":"g1","kind":"fast_cooldown","duration_seconds":600}`},
		{"resolve", h.resolveEvent, `{"community_id":"g1","surface_id":"s1","event_id":"e1","success":true}`},
		{"water", h.water, `{"community_id":"g1","surface_id":"s1"}`},
	}
	for _, call := range calls {
		ctx := &app.RequestContext{}
		ctx.Request.Header.Set(actorIDHeader, "actor-1")
		ctx.Request.SetBody([]byte(call.body))

		call.fn(context.Background(), ctx)

		if got, want := ctx.Response.StatusCode(), consts.StatusForbidden; got != want {
			t.Fatalf("%s: status got=%d want=%d body=%s", call.name, got, want, ctx.Response.Body())
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
			t.Fatalf("%s: unmarshal response: %v", call.name, err)
		}
		var view grove.View
		if err := json.Unmarshal(body["view"], &view); err != nil {
			t.Fatalf("%s: unmarshal view: %v", call.name, err)
		}
		if view.Kind != grove.ViewRestricted {
			t.Fatalf("%s: view kind = %q, want restricted", call.name, view.Kind)
		}
	}

	// nothing was mutated behind the gate
	tree, err := repomemory.NewTreeRepo(store).GetByCommunityID(context.Background(), "g1")
	if err != nil {
		t.Fatalf("load tree: %v", err)
	}
	if tree.Version != 1 || len(tree.Boosts) != 0 {
		t.Fatalf("banned actor mutated state: %+v", tree)
	}
	if _, err := repomemory.NewTreeRepo(store).GetByCommunityID(context.Background(), "g2"); err == nil {
		t.Fatal("banned actor planted a tree")
	}
}

func TestAdmitActorPassesUnbannedActor(t *testing.T) {
	store := repomemory.NewStore()
	h := Handler{Bans: bannedFixture(t, store, "someone-else")}
	ctx := &app.RequestContext{}
	ctx.Request.Header.Set(actorIDHeader, "actor-1")

	actorID, ok := h.admitActor(context.Background(), ctx)
	if !ok || actorID != "actor-1" {
		t.Fatalf("unbanned actor refused: id=%q ok=%v", actorID, ok)
	}
}

func TestKPIHandler_NotConfigured(t *testing.T) {
	h := Handler{}
	ctx := &app.RequestContext{}

	h.kpi(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}
