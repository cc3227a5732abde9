package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/walidbr/stockdeck/internal/alerts"
	"github.com/walidbr/stockdeck/internal/api"
	"github.com/walidbr/stockdeck/internal/session"
	"github.com/walidbr/stockdeck/pkg/config"
	"github.com/walidbr/stockdeck/pkg/keystore"
	"github.com/walidbr/stockdeck/pkg/logger"
	"github.com/walidbr/stockdeck/pkg/metrics"
	"github.com/walidbr/stockdeck/pkg/ops"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "watcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "watcher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := keystore.Open(cfg.Keystore.Path)
	if err != nil {
		logg.Error(context.Background(), "failed to open keystore", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing keystore", err)
		}
	}()

	client, err := api.NewClient(cfg.API.BaseURL, store, logg, api.WithTimeout(cfg.API.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create api client", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(session.ManagerParams{
		Store:  store,
		Client: client,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)
	tracker, err := alerts.NewTracker(alerts.TrackerParams{
		Client:         client,
		Logger:         logg,
		Metrics:        pollerMetrics,
		Interval:       cfg.Poller.Interval,
		Dwell:          cfg.Poller.Dwell,
		TransientLimit: cfg.Poller.TransientLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create alert tracker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"baseURL": cfg.API.BaseURL,
	})
	logg.Info(ctx, "starting watcher")

	sessions.Resolve(ctx)
	if user := sessions.CurrentUser(); user != nil {
		ctx = logg.WithUserID(ctx, user.ID)
	} else {
		// The keystore is read fresh on every request, so a later
		// `stockctl login` makes the poll loop start succeeding.
		logg.Warn(ctx, "no valid session yet; polling will fail until `stockctl login`")
	}

	opsServer := &http.Server{
		Addr:    cfg.Ops.Addr,
		Handler: ops.NewHandler(cfg, prometheus.DefaultGatherer),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return tracker.Run(groupCtx)
	})
	group.Go(func() error {
		logg.Info(logg.WithField(groupCtx, "addr", cfg.Ops.Addr), "starting ops server")
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "watcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "watcher shutting down gracefully")
}
