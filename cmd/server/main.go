/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), parse flags
  2. Initialize SQLite store (holidays are loaded into memory)
  3. Wire calculator, validator, conflict cache and service
  4. Start the cache refresh scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: leave.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  END_OF_CARRY_PERIOD     dd.mm, last day last year's leave may be used (31.03)
  CONFLICT_CACHE_TTL      max age of the conflict cache (1h)
  CACHE_REFRESH_INTERVAL  how often the scheduler checks the cache (5m)
  LOG_LEVEL               logrus level (info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresh scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Settings
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	logger.SetLevel(cfg.App.LogLevel)

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.App.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Engine
	calc := leave.NewCalculator(store, store, store, store, cfg.Leave.CarryPeriod, generic.NewWorkCalendar(store))
	calc.Logger = logger.WithField("component", "calculator")
	validator := leave.NewValidator(store, store, calc)
	validator.Logger = logger.WithField("component", "validator")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cache := leave.NewConflictCache(store, store,
		leave.WithTTL(cfg.Cache.TTL),
		leave.WithCacheLogger(logger.WithField("component", "conflict-cache")),
		leave.WithRegisterer(registry),
	)

	service := &leave.Service{
		Records:    store,
		Employees:  store,
		Memo:       store,
		Validator:  validator,
		Calculator: calc,
		Detector:   &leave.Detector{Records: store},
		Cache:      cache,
		Logger:     logger.WithField("component", "service"),
	}

	scheduler := api.NewRefreshScheduler(cache, logger)
	scheduler.CheckInterval = cfg.Cache.RefreshInterval
	scheduler.Start()

	// Create router
	handler := api.NewHandler(service, store, logger.WithField("component", "api"))
	router := api.NewRouter(handler, registry)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":         *port,
			"db":           *dbPath,
			"carry_period": cfg.Leave.CarryPeriod.String(),
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server stopped")
}
