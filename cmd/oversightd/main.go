// Command oversightd runs the oversight approval workflow server: the REST
// and WebSocket API, the escalation/timeout monitor, and the notification
// dispatcher, all backed by a single PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oversightlabs/oversight/internal/api"
	"github.com/oversightlabs/oversight/internal/config"
	"github.com/oversightlabs/oversight/internal/db"
	"github.com/oversightlabs/oversight/internal/db/migrations"
	"github.com/oversightlabs/oversight/internal/dbpool"
	"github.com/oversightlabs/oversight/internal/notify"
	"github.com/oversightlabs/oversight/internal/service"
	"github.com/oversightlabs/oversight/internal/store"
	"github.com/oversightlabs/oversight/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"version": config.Version,
		"addr":    cfg.Addr(),
	}).Info("starting oversightd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	base := store.Base{Pool: pool, Log: log}
	requests := store.NewRequestStore(base)
	policies := store.NewPolicyStore(base)
	transitions := store.NewTransitionStore(base)
	notifications := store.NewNotificationStore(base)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}
	cache := service.NewPolicyCache(policies, rdb, log, cfg.PolicyCacheTTL)
	go cache.Listen(ctx)

	senders := notify.Registry{
		"log":     notify.NewLogSender(log),
		"webhook": notify.NewWebhookSender(),
	}
	dispatcher := service.NewDispatcher(notifications, senders, log, cfg.NotifyQueueSize)
	go dispatcher.Run(ctx)

	oversight := service.NewOversightService(requests, cache, dispatcher, log)
	policyAdmin := service.NewPolicyAdminService(policies, cache, log)

	monitor := service.NewMonitor(requests, policies, dispatcher, log, cfg.MonitorInterval)
	go monitor.Run(ctx)

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	bridge := db.NewNotifyBridge(log, pool, hub)
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("start notify bridge: %w", err)
	}

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:           log,
		Pool:          pool,
		Hub:           hub,
		Requests:      oversight,
		Policies:      policyAdmin,
		Audit:         transitions,
		Notifications: notifications,
		OrgLookup:     &base,
		CORSOrigins:   cfg.CORSOrigins,
		Version:       config.Version,
	})

	apiServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", metricsServer.Addr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.Shutdown()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("api server shutdown")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
		return nil
	})

	return g.Wait()
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
