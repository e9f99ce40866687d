package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifedesk/internal/auth"
	"lifedesk/internal/config"
	"lifedesk/internal/dashboard"
	"lifedesk/internal/financial"
	"lifedesk/internal/httpapi"
	"lifedesk/internal/logger"
	"lifedesk/internal/profile"
	"lifedesk/internal/recurrence"
	"lifedesk/internal/schedule"
	"lifedesk/internal/scheduler"
	"lifedesk/internal/spiritual"
	"lifedesk/internal/storage"
	"lifedesk/internal/storage/memory"
	"lifedesk/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("loading configuration")
	}

	log := logger.New(cfg.LogLevel)

	var store storage.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			log.WithError(err).Fatal("connecting to postgres")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			cancel()
			log.WithError(err).Fatal("preparing schema")
		}
		cancel()
		defer pg.Close()
		store = pg
		log.Info("using postgres store")
	} else {
		store = memory.New()
		log.Info("no DATABASE_URL set, using in-memory store")
	}

	cache := recurrence.NewExpansionCache(recurrence.DefaultCacheConfig)
	defer cache.Close()

	engine := schedule.NewEngine(store, cache, log.WithField("component", "engine"))
	schedules := schedule.NewService(store, engine, log.WithField("component", "schedule"))
	authSvc := auth.NewService(store, []byte(cfg.JWTSecret), cfg.TokenTTL, log.WithField("component", "auth"))
	profiles := profile.NewService(store)
	finances := financial.NewService(store)
	practices := spiritual.NewService(store)
	board := dashboard.New(profiles, schedules, finances, practices, log.WithField("component", "dashboard"))

	sweeper := scheduler.NewReminderSweeper(store, schedules, cfg.ReminderCron, 5*time.Minute, log.WithField("component", "reminders"))
	if err := sweeper.Start(); err != nil {
		log.WithError(err).Fatal("starting reminder sweeper")
	}
	defer sweeper.Stop()

	handler := httpapi.NewHandler(httpapi.Services{
		Auth:      authSvc,
		Profiles:  profiles,
		Schedule:  schedules,
		Finance:   finances,
		Spiritual: practices,
		Dashboard: board,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
