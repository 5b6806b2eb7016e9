package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	cachememory "grovetender/internal/adapter/cache/memory"
	httpadapter "grovetender/internal/adapter/http"
	metricsinmem "grovetender/internal/adapter/metrics/inmemory"
	randsource "grovetender/internal/adapter/rand"
	gormrepo "grovetender/internal/adapter/repo/gorm"
	surfacememory "grovetender/internal/adapter/surface/memory"
	statictoggles "grovetender/internal/adapter/toggles/static"
	"grovetender/internal/app/booster"
	"grovetender/internal/app/ephemeral"
	"grovetender/internal/app/history"
	"grovetender/internal/app/plant"
	"grovetender/internal/app/sideevent"
	"grovetender/internal/app/stateview"
	"grovetender/internal/app/water"
	"grovetender/internal/app/watchdog"
	"grovetender/internal/domain/grove"

	"github.com/cloudwego/hertz/pkg/app/server"
)

func main() {
	dsn := os.Getenv("GROVETENDER_DB_DSN")
	if dsn == "" {
		log.Fatal("GROVETENDER_DB_DSN is required")
	}
	db, err := gormrepo.Open(dsn)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if dir := strings.TrimSpace(os.Getenv("GROVETENDER_MIGRATIONS_DIR")); dir != "" {
		if err := gormrepo.ApplyMigrations(context.Background(), db, dir); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	toggles, err := statictoggles.Load(os.Getenv("GROVETENDER_TOGGLES_FILE"))
	if err != nil {
		log.Fatalf("load toggles: %v", err)
	}

	treeRepo := gormrepo.NewTreeRepo(db)
	attemptRepo := gormrepo.NewAttemptRepo(db)
	flagRepo := gormrepo.NewFlagRepo(db)
	banRepo := gormrepo.NewBanRepo(db)
	eventRepo := gormrepo.NewEventRepo(db)
	txManager := gormrepo.NewTxManager(db)

	curve := grove.NewCurve()
	rng := randsource.NewSource()
	scheduler := ephemeral.NewScheduler()
	pending := sideevent.NewRegistry()
	renderer := surfacememory.NewRenderer()
	kpiRecorder := metricsinmem.NewRecorder()

	watchdogUC := &watchdog.UseCase{
		Toggles:  toggles,
		Attempts: attemptRepo,
		Flags:    flagRepo,
		Bans:     banRepo,
		Events:   eventRepo,
		Now:      time.Now,
	}
	sideEventUC := &sideevent.UseCase{
		TxManager: txManager,
		Trees:     treeRepo,
		Events:    eventRepo,
		Pending:   pending,
		Scheduler: scheduler,
		Renderer:  renderer,
		Curve:     curve,
		Now:       time.Now,
	}
	waterUC := &water.UseCase{
		TxManager: txManager,
		Trees:     treeRepo,
		Events:    eventRepo,
		Metrics:   kpiRecorder,
		Toggles:   toggles,
		Curve:     curve,
		Rand:      rng,
		Dispatcher: sideevent.NewDispatcher(
			rng,
			floatEnv("GROVE_SIDE_EVENT_CHANCE", sideevent.DefaultChance),
			int64(intEnv("GROVE_SIDE_EVENT_SPACING_SECONDS", sideevent.DefaultMinSpacingSeconds)),
		),
		SideEvents: sideEventUC,
		Scheduler:  scheduler,
		Renderer:   renderer,
		Watchdog:   watchdogUC,
		Now:        time.Now,
	}

	h := httpadapter.Handler{
		WaterUC: waterUC,
		EventUC: sideEventUC,
		PlantUC: plant.UseCase{Trees: treeRepo, Events: eventRepo, Now: time.Now},
		BoostUC: booster.UseCase{
			TxManager:  txManager,
			Trees:      treeRepo,
			Events:     eventRepo,
			Scheduler:  scheduler,
			Renderer:   renderer,
			SideEvents: sideEventUC,
			Curve:      curve,
			Now:        time.Now,
		},
		ViewUC: stateview.UseCase{
			Trees: treeRepo,
			Cache: cachememory.NewCache(),
			Curve: curve,
			Now:   time.Now,
		},
		HistoryUC: history.UseCase{Events: eventRepo},
		Bans:      watchdogUC,
		KPI:       kpiRecorder,
	}

	addr := os.Getenv("GROVETENDER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	s := server.Default(server.WithHostPorts(addr))
	h.RegisterRoutes(s)

	log.Printf("grovetender listening on %s", addr)
	s.Spin()
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnv(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
