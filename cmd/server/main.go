package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/carrypal/internal/alerts"
	"github.com/sudo-init-do/carrypal/internal/auth"
	"github.com/sudo-init-do/carrypal/internal/config"
	"github.com/sudo-init-do/carrypal/internal/db"
	"github.com/sudo-init-do/carrypal/internal/discovery"
	"github.com/sudo-init-do/carrypal/internal/escrow"
	"github.com/sudo-init-do/carrypal/internal/httpapi"
	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/match"
	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/payment"
	"github.com/sudo-init-do/carrypal/internal/realtime"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/storage/memory"
	"github.com/sudo-init-do/carrypal/internal/storage/postgres"
	"github.com/sudo-init-do/carrypal/internal/user"
)

// store is everything the services persist through. Both backends
// implement it.
type store interface {
	match.Store
	listing.Store
	notify.Store
	review.Store
	user.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var (
		st       store
		provider payment.Provider
		deps     httpapi.Deps
	)
	switch cfg.Storage {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DB.DSN())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		wallet := payment.NewWallet(pool)
		st, provider = postgres.New(pool), wallet
		deps.Wallet = wallet
		deps.Ready = pool.Ping
	case "memory":
		mem := memory.New()
		if err := seedArbiters(ctx, mem, cfg.Arbiters); err != nil {
			return err
		}
		st, provider = mem, payment.NewSandbox()
		log.Println("[server] using in-memory storage and sandbox payments")
	}

	g, gctx := errgroup.WithContext(ctx)

	hub := realtime.NewHub()
	dir := user.NewDirectory(st)
	notifyOpts := []notify.Option{notify.WithPublisher(hub)}
	if cfg.RedisAddr != "" {
		redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := asynq.NewClient(redis)
		defer client.Close()
		notifyOpts = append(notifyOpts, notify.WithMailer(alerts.NewEnqueuer(client, st, cfg.Mail.AppURL)))

		sender, err := alerts.NewSender(cfg.Mail)
		if err != nil {
			log.Printf("[alerts] emails are queued but not sent: %v", err)
		} else {
			worker := alerts.NewWorker(redis, sender)
			g.Go(func() error { return worker.Run(gctx) })
		}
	}
	notifier := notify.NewNotifier(st, dir, notifyOpts...)

	matches := match.NewService(st, escrow.NewLedger(provider),
		match.WithListings(st),
		match.WithRoles(dir),
		match.WithNotifier(notifier),
	)
	reviews := review.NewService(st, st)

	deps.Matches = matches
	deps.Listings = listing.NewService(st)
	deps.Discovery = discovery.NewEngine(st, discovery.NewProfiles(dir, reviews))
	deps.Reviews = reviews
	deps.Users = dir
	deps.Notifier = notifier
	deps.Tokens = auth.NewTokens(cfg.JWTSecret, 0)
	deps.Hub = hub
	deps.RateLimit = cfg.RateLimit

	if cfg.AutoReleaseAfter > 0 {
		sweeper := match.NewSweeper(matches, cfg.AutoReleaseAfter, cfg.SweepInterval)
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	e := httpapi.New(deps)
	g.Go(func() error {
		log.Printf("[server] listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// seedArbiters grants the arbiter role to ids in memory mode, where no admin
// tool can reach the store.
func seedArbiters(ctx context.Context, s *memory.Store, ids []string) error {
	for _, id := range ids {
		if _, err := s.UpsertUser(ctx, user.User{ID: id, CreatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("seed arbiter %s: %w", id, err)
		}
		if err := s.SetRole(ctx, id, user.RoleArbiter); err != nil {
			return fmt.Errorf("seed arbiter %s: %w", id, err)
		}
		log.Printf("[server] seeded arbiter %s", id)
	}
	return nil
}
