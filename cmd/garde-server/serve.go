package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pharmagarde/pharmagarde/internal/config"
	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/domain/notification"
	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
	"github.com/pharmagarde/pharmagarde/internal/platform/async"
	"github.com/pharmagarde/pharmagarde/internal/platform/auth"
	"github.com/pharmagarde/pharmagarde/internal/platform/db"
	"github.com/pharmagarde/pharmagarde/internal/platform/discovery"
	"github.com/pharmagarde/pharmagarde/internal/platform/middleware"
	"github.com/pharmagarde/pharmagarde/internal/platform/mqtt"
	"github.com/pharmagarde/pharmagarde/internal/platform/redisbus"
	"github.com/pharmagarde/pharmagarde/internal/platform/websocket"
)

const (
	apiPrefix       = "/api"
	shutdownTimeout = 10 * time.Second
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger, cfg.IsProduction())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.BodyLimit("1M"))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group(apiPrefix)

	// Auth is only enforced on mutating routes.
	var requireUser echo.MiddlewareFunc
	if cfg.IsDev() {
		requireUser = auth.DevAuthMiddleware(jwtConfig(cfg))
		logger.Warn().Msg("development mode: unauthenticated writes run as the dev user")
	} else {
		requireUser = auth.JWTMiddleware(jwtConfig(cfg))
	}

	// Status notifications
	// No task deadline. Each push attempt is bounded by PUSH_TIMEOUT.
	runner := async.New(logger, cfg.NotifyWorkers, 0)
	hub := websocket.NewHub(logger)
	subscriptions := notification.NewSubscriptionRepoPG(pool)

	var sinks []notification.Notifier
	if cfg.PushEnabled() {
		sender := notification.NewWebPushSender(notification.VAPIDConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subscriber: cfg.VAPIDSubscriber,
			TTL:        cfg.PushTTL,
		}, cfg.PushTimeout)
		sinks = append(sinks, notification.NewFanOut(subscriptions, sender, logger, cfg.PushConcurrency))
	} else {
		logger.Warn().Msg("VAPID keys not configured, web push disabled")
	}

	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()

	var bus *redisbus.Bus
	if cfg.RedisURL != "" {
		bus, err = redisbus.Connect(ctx, cfg.RedisURL, cfg.RedisChannel, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		// Every replica, this one included, feeds its WebSocket clients
		// from the bus.
		sinks = append(sinks, bus)
		go func() {
			if err := bus.Listen(listenCtx, hub.NotifyAll); err != nil {
				logger.Error().Err(err).Msg("redis listener stopped")
			}
		}()
	} else {
		sinks = append(sinks, hub)
	}

	var mqttPub *mqtt.Publisher
	if cfg.MQTTBrokerURL != "" {
		mqttPub, err = mqtt.Connect(mqtt.Config{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		sinks = append(sinks, mqttPub)
	}

	// Domain
	estSvc := establishment.NewService(
		establishment.NewEstablishmentRepoPG(pool),
		establishment.NewReviewRepoPG(pool),
		notification.Multi(sinks...),
		runner,
	).WithLogger(logger)
	establishment.NewHandler(estSvc).RegisterRoutes(api, requireUser)

	notifySvc := notification.NewService(subscriptions, cfg.VAPIDPublicKey)
	notification.NewHandler(notifySvc).RegisterRoutes(api)

	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(api)

	// Local network discovery
	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil {
			logger.Fatal().Err(err).Str("port", cfg.Port).Msg("mDNS needs a numeric PORT")
		}
		advertiser, err = discovery.Advertise(cfg.MDNSInstance, port, apiPrefix, logger)
		if err != nil {
			logger.Error().Err(err).Msg("mDNS advertisement failed")
		}
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	advertiser.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending notifications abandoned")
	}

	stopListening()
	if bus != nil {
		if err := bus.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis close failed")
		}
	}
	if mqttPub != nil {
		mqttPub.Close()
	}
	logger.Info().Msg("server stopped")
	return nil
}
