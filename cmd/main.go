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
	"github.com/ukydev/propdocs-maintenance/internal/auth"
	"github.com/ukydev/propdocs-maintenance/internal/config"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/handlers"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/middleware"
	"github.com/ukydev/propdocs-maintenance/internal/notify"
	"github.com/ukydev/propdocs-maintenance/internal/service"
	"github.com/ukydev/propdocs-maintenance/internal/sweep"
)

// newRouter wires the API routes behind authentication and request logging.
func newRouter(svc *service.Service, tokens *auth.Service, pinger handlers.Pinger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(pinger))
	handlers.New(svc).Register(mux)

	return middleware.RequestLogger(middleware.NewAuthMiddleware(tokens).Authenticate(mux))
}

// loadRules returns the rules from path, or the defaults when path is empty.
func loadRules(path string) (maintenance.Rules, error) {
	if path == "" {
		return maintenance.DefaultRules(), nil
	}
	return maintenance.LoadRules(path)
}

// newDispatcher connects to MQTT when a broker is configured and falls back
// to logging otherwise. The returned func releases the connection.
func newDispatcher(cfg config.MQTTConfig) (notify.Dispatcher, func()) {
	if cfg.Broker == "" {
		log.Info("MQTT_BROKER not set, notifications will only be logged")
		return notify.LogDispatcher{}, func() {}
	}
	d, err := notify.NewMQTTDispatcher(notify.MQTTConfig{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		log.WithError(err).Warn("MQTT unavailable, notifications will only be logged until restart")
		return notify.LogDispatcher{}, func() {}
	}
	return d, d.Close
}

func collections(store *db.Store) service.Collections {
	return service.Collections{
		Properties:     store.Properties,
		Assets:         store.Assets,
		Schedules:      store.Schedules,
		Tasks:          store.Tasks,
		ServiceRecords: store.ServiceRecords,
		Notifications:  store.Notifications,
		Activity:       store.Activity,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.Log.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	store := db.NewStore(client.Database(cfg.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		log.WithError(err).WithField("rules_file", cfg.RulesFile).Fatal("Failed to load maintenance rules")
	}
	engine, err := maintenance.NewEngine(rules, maintenance.SystemClock{})
	if err != nil {
		log.WithError(err).Fatal("Invalid maintenance rules")
	}

	dispatcher, closeDispatcher := newDispatcher(cfg.MQTT)
	defer closeDispatcher()

	svc := service.New(collections(store), engine, dispatcher)

	sweeper := sweep.New(sweep.Config{
		Schedules:     store.Schedules,
		Tasks:         store.Tasks,
		Assets:        store.Assets,
		Notifications: store.Notifications,
		Reconciler:    svc,
		Engine:        engine,
		Dispatcher:    dispatcher,
		BatchSize:     cfg.Sweep.BatchSize,
	})
	if err := sweeper.Start(ctx, cfg.Sweep.Schedule, cfg.Sweep.OnStart); err != nil {
		log.WithError(err).Fatal("Failed to start maintenance sweeper")
	}
	defer sweeper.Stop()

	tokens := auth.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(svc, tokens, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
}
