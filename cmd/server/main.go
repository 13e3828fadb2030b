package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/config"
	"github.com/divyaflow/temple-ops/internal/database"
	"github.com/divyaflow/temple-ops/internal/engine"
	"github.com/divyaflow/temple-ops/internal/handler"
	"github.com/divyaflow/temple-ops/internal/model"
	"github.com/divyaflow/temple-ops/internal/queue"
	"github.com/divyaflow/temple-ops/internal/repository"
	"github.com/divyaflow/temple-ops/internal/router"
	"github.com/divyaflow/temple-ops/internal/seed"
	"github.com/divyaflow/temple-ops/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// Database is optional.  Without it the server runs from seeded
	// in-memory data and the auth routes answer 503.
	var (
		users  *repository.UserRepo
		tokens *repository.TokenRepo
		snaps  *repository.SnapshotRepo
	)
	if cfg.DBHost != "" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		users = repository.NewUserRepo(db)
		tokens = repository.NewTokenRepo(db)
		snaps = repository.NewSnapshotRepo(db)
	} else {
		log.Println("DB_HOST not set, running in-memory without persistence")
	}

	ops := service.New(snaps, queue.Publisher{})

	seedValue := cfg.EngineSeed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedValue))

	populate(ops, snaps, rng)

	eng := engine.New(ops.Temples, ops.Alerts, ops.TempleFeed, ops.AlertFeed, rng, engine.Config{
		TickInterval: cfg.EngineTick,
		DeltaMin:     cfg.EngineDeltaMin,
		DeltaMax:     cfg.EngineDeltaMax,
		AlertProb:    cfg.EngineAlertProb,
	}, ops)
	eng.Start()
	defer eng.Stop()

	// The consumer keeps its own reconnect loop; a dead broker only costs
	// us the alert log file.
	go func() {
		if err := queue.StartAlertConsumer(); err != nil {
			log.Printf("rabbitmq consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Temples:  handler.NewTempleHandler(ops),
		Bookings: handler.NewBookingHandler(ops),
		Alerts:   handler.NewAlertHandler(ops),
		Stream:   handler.NewStreamHandler(ops),
	}, cfg, rdb)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	eng.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// populate fills the stores from persisted snapshots when available and
// falls back to the seeded demo world otherwise.
func populate(ops *service.Ops, snaps *repository.SnapshotRepo, rng engine.Rand) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var temples []model.Temple
	if snaps != nil {
		loaded, err := snaps.LoadTemples(ctx)
		if err != nil {
			log.Printf("snapshot: load temples failed, seeding instead: %v", err)
		} else {
			temples = loaded
		}
	}
	if len(temples) == 0 {
		temples = seed.Temples(rng)
		today := time.Now().UTC().Truncate(24 * time.Hour)
		for _, t := range temples {
			for _, s := range seed.Slots(rng, t.ID, today) {
				if err := ops.Slots.Upsert(s); err != nil {
					log.Printf("seed: slot %s rejected: %v", s.ID, err)
				}
			}
		}
		for _, a := range seed.Alerts(rng, temples, 3, time.Now().UTC()) {
			if err := ops.Alerts.Upsert(a); err != nil {
				log.Printf("seed: alert %s rejected: %v", a.ID, err)
			}
		}
		for _, t := range temples {
			if err := ops.Temples.Upsert(t); err != nil {
				log.Printf("seed: temple %s rejected: %v", t.ID, err)
			}
		}
		return
	}

	for _, t := range temples {
		if err := ops.Temples.Upsert(t); err != nil {
			log.Printf("snapshot: temple %s rejected: %v", t.ID, err)
		}
	}
	if slots, err := snaps.LoadSlots(ctx); err != nil {
		log.Printf("snapshot: load slots failed: %v", err)
	} else {
		for _, s := range slots {
			if err := ops.Slots.Upsert(s); err != nil {
				log.Printf("snapshot: slot %s rejected: %v", s.ID, err)
			}
		}
	}
	if bookings, err := snaps.LoadBookings(ctx); err != nil {
		log.Printf("snapshot: load bookings failed: %v", err)
	} else {
		for _, b := range bookings {
			if err := ops.Bookings.Upsert(b); err != nil {
				log.Printf("snapshot: booking %s rejected: %v", b.ID, err)
			}
		}
	}
	if alerts, err := snaps.LoadAlerts(ctx); err != nil {
		log.Printf("snapshot: load alerts failed: %v", err)
	} else {
		for _, a := range alerts {
			if err := ops.Alerts.Upsert(a); err != nil {
				log.Printf("snapshot: alert %s rejected: %v", a.ID, err)
			}
		}
	}
}
