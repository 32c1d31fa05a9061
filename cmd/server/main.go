package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secureshield/internal/core/services"
	storebackup "secureshield/internal/infrastructure/backup"
	httphandlers "secureshield/internal/handlers/http"
	"secureshield/internal/infrastructure/distributed"
	"secureshield/internal/infrastructure/monitoring"
	"secureshield/internal/infrastructure/repositories"
	feeds "secureshield/internal/infrastructure/signal"
	"secureshield/pkg/backup"
	"secureshield/pkg/config"
	"secureshield/pkg/logger"
	"secureshield/pkg/tracing"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	cfg, configErr := loadConfig(
		"configs/config.yaml",
		"/etc/secureshield/config.yaml",
		"config.yaml",
	)

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	if configErr != nil {
		log.Warnw("using default configuration", "error", configErr)
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()

	storeFactory := repositories.NewStoreFactory(ctx, cfg, clk, log)
	store, err := storeFactory.CreateStore(cfg)
	if err != nil {
		log.Fatalw("failed to open store", "driver", storeFactory.Driver(), "error", err)
	}

	if cfg.Backup.Enabled || cfg.Backup.RestoreOnStart != "" {
		storage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to open backup storage", "dir", cfg.Backup.Dir, "error", err)
		}
		backups := backup.NewBackupService(storage, storebackup.FormatVersion, clk)

		if cfg.Backup.RestoreOnStart != "" {
			restorer := storebackup.NewRestoreService(backups, store, log)
			name, err := restorer.RestoreFromBackup(ctx, cfg.Backup.RestoreOnStart, storebackup.AllCollections())
			if err != nil {
				log.Fatalw("failed to restore backup", "backup", cfg.Backup.RestoreOnStart, "error", err)
			}
			log.Infow("store restored", "backup_name", name)
		}

		if cfg.Backup.Enabled {
			scheduler := storebackup.NewScheduler(backups, store, storebackup.Config{
				Interval: cfg.Backup.Interval,
				MaxAge:   cfg.Backup.MaxAge,
			}, clk, log)
			go scheduler.Run(ctx)
		}
	}

	metrics := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	hub := services.NewNotificationHub(clk, cfg.Notifications.DismissAfter, cfg.Notifications.Buffer, metrics, log)
	audit := services.NewAuditService(store, clk)
	authService := services.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, clk, metrics, log)
	catalog := services.NewCatalogService(store)
	ingestion := services.NewIngestionService(store, hub, clk, metrics, log)
	sessions := services.NewSessionService(store, audit, services.SessionConfig{
		VerificationDelay: cfg.Session.VerificationDelay,
		TickInterval:      cfg.Session.TickInterval,
		Retention:         cfg.Session.Retention,
	}, clk, metrics, log)
	go sessions.Run(ctx)

	var bus *distributed.EventBus
	if client := storeFactory.RedisClient(); client != nil {
		bus = distributed.NewEventBus(client, cfg.Redis.NotificationChannel, uuid.NewString(), log)
		hub.SetRelay(bus)
		go func() {
			if err := bus.Subscribe(ctx, distributed.NotificationHandler(hub.Deliver)); err != nil && ctx.Err() == nil {
				log.Errorw("notification relay stopped", "error", err)
			}
		}()
	}

	feedServer := feeds.NewWebSocketServer(sessions, hub, feeds.FeedConfig{
		PingInterval:   cfg.Feeds.PingInterval,
		PongTimeout:    cfg.Feeds.PongTimeout,
		WriteTimeout:   cfg.Feeds.WriteTimeout,
		AllowedOrigins: cfg.Auth.AllowedOrigins,
	}, log)

	health := monitoring.NewHealthChecker(log)
	health.AddStoreCheck(store, 30*time.Second, 2*time.Second)
	if client := storeFactory.RedisClient(); client != nil {
		health.AddRedisCheck(client, storeFactory.Driver() == config.DriverRedis, 30*time.Second, 2*time.Second)
	}
	health.StartBackgroundChecks(ctx)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := httphandlers.NewRouter(cfg, httphandlers.Dependencies{
		Auth:      authService,
		Catalog:   catalog,
		Ingestion: ingestion,
		Sessions:  sessions,
		Audit:     audit,
		Extra:     []httphandlers.RouteRegistrar{feedServer},
		Logger:    log,
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"driver":    storeFactory.Driver(),
			"feeds":     feedServer.ConnectionCount(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		checkCtx, checkCancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer checkCancel()

		status := health.CheckAll(checkCtx)
		if status.Status == monitoring.StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting SecureShield server", "address", cfg.Server.Address, "driver", storeFactory.Driver())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down SecureShield server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	feedServer.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	cancel()
	sessions.Shutdown()
	hub.Close()
	if bus != nil {
		if err := bus.Close(); err != nil {
			log.Errorw("error closing notification relay", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Errorw("error closing store", "error", err)
	}
	if err := storeFactory.Close(); err != nil {
		log.Errorw("error closing store factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("SecureShield server stopped")
}

// loadConfig reads the first config file that exists. Without one, defaults
// plus environment overrides apply.
func loadConfig(paths ...string) (*config.Config, error) {
	path := paths[0]
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultConfig(), err
	}
	return cfg, nil
}
