package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/bootstrap"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/database"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/logging"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/routes"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/store"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Sentry error tracking
	if dsn := cfg.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Cache (best-effort; a failed connection disables it)
	cacheClient := cache.New(cfg)
	defer cacheClient.Close()

	// Services
	kc := keycloak.New(cfg)
	if !kc.IsConfigured() {
		slog.Warn("keycloak client secret not set, writes will fail and reads degrade")
	}
	authzStore := store.New(database.DB)
	authz := services.NewCachedAuthorizationService(authzStore, cacheClient, services.CacheTTLs{
		User: cfg.UserTTL,
		Role: cfg.RoleTTL,
		List: cfg.ListTTL,
	})
	identity := services.NewIdentityService(authz, kc, cacheClient)

	// Root user bootstrap (idempotent)
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := bootstrap.EnsureRootUser(bootCtx, cfg, identity, authz, kc); err != nil {
		bootCancel()
		slog.Error("root user bootstrap failed", "error", err)
		os.Exit(1)
	}
	bootCancel()

	// Handlers
	userHandler := handlers.NewUserHandler(identity, cfg)
	roleHandler := handlers.NewRoleHandler(identity, cfg)
	healthHandler := handlers.NewHealthHandler(cacheClient, kc)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, authz, userHandler, roleHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
