package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/app"
	"github.com/ukydev/traffic-sim/internal/auth"
	"github.com/ukydev/traffic-sim/internal/config"
	"github.com/ukydev/traffic-sim/internal/handlers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Traffic simulation failed")
	}
}

// run ticks the engine and serves the API until ctx is cancelled.
func run(ctx context.Context, cfg config.Config) error {
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return err
	}

	sinks, err := app.OpenSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sinks.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close telemetry sinks")
		}
	}()

	users, closeUsers, err := app.OpenUsers(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeUsers(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to close account store")
		}
	}()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}
	if cfg.Operator.Username != "" {
		if err := authService.EnsureOperator(ctx, users, cfg.Operator); err != nil {
			return err
		}
	} else {
		log.Warn("OPERATOR_USERNAME not set, only /health is reachable")
	}

	srv := newServer(cfg, handlers.NewRouter(handlers.RouterConfig{
		Simulation:  engine,
		AuthService: authService,
		Users:       users,
		RateLimit:   cfg.RateLimit,
	}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(ctx, cfg.TickInterval, sinks)
	})
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.WithFields(log.Fields{
		"run_id": engine.RunID(),
		"ticks":  engine.Tick(),
		"trips":  engine.TripsCompleted(),
	}).Info("Traffic simulation shut down")
	return err
}

func newServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
