package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/guest-pass/internal/config"
	"github.com/iliyamo/guest-pass/internal/database"
	"github.com/iliyamo/guest-pass/internal/handler"
	"github.com/iliyamo/guest-pass/internal/logging"
	"github.com/iliyamo/guest-pass/internal/middleware"
	"github.com/iliyamo/guest-pass/internal/queue"
	"github.com/iliyamo/guest-pass/internal/repository"
	"github.com/iliyamo/guest-pass/internal/router"
	"github.com/iliyamo/guest-pass/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config
	logging.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	invitations, tickets, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("open record store")
	}
	defer closeStore()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unavailable: rate limiting and QR cache disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewScanPublisher(cfg.RabbitURL)
	}

	issuer := service.NewIssuer()
	verifier := service.NewVerifier(invitations, tickets, cfg.RequireSold, events)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(logging.Middleware())
	router.RegisterRoutes(e, router.Handlers{
		Health:      handler.Health(cfg.StoreDriver),
		Auth:        handler.NewAuthHandler(cfg),
		Invitations: handler.NewInvitationHandler(invitations),
		Tickets:     handler.NewTicketHandler(tickets, cfg.TicketSeedCount),
		Verify:      handler.NewVerifyHandler(verifier),
		QR:          handler.NewQRHandler(invitations, tickets, issuer, service.NewExporter(invitations, tickets, issuer), cfg.BaseURL),
	}, router.Guards{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port // Address string with port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.EventsEnabled {
		g.Go(func() error {
			err := queue.StartScanConsumer(ctx, cfg.RabbitURL, cfg.ScanLogDir)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// openStores returns the invitation and ticket stores for STORE_DRIVER and
// makes sure the ticket collection is seeded.
func openStores(ctx context.Context, cfg config.Config) (service.InvitationStore, service.TicketStore, func(), error) {
	if cfg.StoreDriver == "mysql" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		tickets := repository.NewMySQLTicketRepo(db)
		if err := tickets.SeedIfEmpty(ctx, cfg.TicketSeedCount); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repository.NewMySQLInvitationRepo(db), tickets, closer(db), nil
	}

	invitations := repository.NewInvitationRepo(cfg.DataDir)
	tickets := repository.NewTicketRepo(cfg.DataDir, cfg.TicketSeedCount)
	// The first read creates both files, seeding tickets when absent.
	if _, err := invitations.List(ctx); err != nil {
		return nil, nil, nil, err
	}
	if _, err := tickets.List(ctx); err != nil {
		return nil, nil, nil, err
	}
	return invitations, tickets, func() {}, nil
}

func closer(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("close database")
		}
	}
}
