package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/catalog"
	"hunter-quest-system/config"
	"hunter-quest-system/handlers"
	"hunter-quest-system/middleware"
	"hunter-quest-system/repository"
	"hunter-quest-system/services"
	"hunter-quest-system/storage"
	"hunter-quest-system/telemetry"
	"hunter-quest-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "hunter-quest-system"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	repo := repository.NewGormRepository(db, clock)

	if cfg.SeedCatalog {
		if err := catalog.SeedDefault(ctx, repo, logger); err != nil {
			return err
		}
	}

	var uploader storage.Uploader
	if cfg.R2.Enabled() {
		r2, err := storage.NewR2Storage(ctx, cfg.R2)
		if err != nil {
			return err
		}
		uploader = r2
	} else {
		local, err := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
		if err != nil {
			return err
		}
		uploader = local
		logger.Warn("R2 not configured, storing icons on local disk", "dir", cfg.UploadDir)
	}

	achievements := services.NewAchievementService(repo, cfg.AchievementAutoAward, logger)
	svc := handlers.Services{
		Hunters: services.NewHunterService(repo, logger),
		Quests:  services.NewQuestService(repo, clock, loc, logger),
		Completion: services.NewCompletionService(repo, achievements, services.CompletionOptions{
			Clock:               clock,
			Location:            loc,
			ApplyMissionBonusXP: cfg.ApplyMissionBonusXP,
			Logger:              logger,
		}),
		Achievements: achievements,
		Catalog:      services.NewCatalogService(repo, uploader, logger),
		Activity:     services.NewActivityService(repo, clock, loc, logger),
	}

	var streamValidator middleware.TokenValidator
	switch {
	case cfg.JWTSecret != "":
		streamValidator = &services.JWTValidator{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}
	case cfg.AuthServiceURL != "":
		streamValidator = services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.GatewayToken)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    2 * services.MaxIconBytes,
		ErrorHandler: jsonErrorHandler,
	})
	app.Use(recover.New())
	app.Use(telemetry.Middleware(nil))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if cfg.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if id := c.Get("X-User-ID"); id != "" {
					return id
				}
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz"
			},
		}))
	}

	if !cfg.R2.Enabled() {
		app.Static("/uploads", cfg.UploadDir)
	}
	handlers.Setup(app, svc, handlers.Options{
		GatewayToken:    cfg.GatewayToken,
		StreamValidator: streamValidator,
		Logger:          logger,
	})

	scheduler := services.NewScheduler(repo, clock, loc, logger)
	scheduler.HuntResetInterval = cfg.HuntResetInterval
	scheduler.ExpireOverdue = cfg.ExpireOverdueQuests
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	if cfg.SyncServiceURL != "" {
		workers.NewIdentitySyncWorker(repo, clock, logger, cfg.SyncServiceURL, cfg.GatewayToken, cfg.SyncInterval).Start(ctx)
	} else {
		logger.Info("SYNC_SERVICE_URL not set, identity sync disabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(":" + cfg.Port)
	}()
	logger.Info("server running", "port", cfg.Port, "timezone", loc.String(), "origins", cfg.Origins())

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// jsonErrorHandler keeps fiber's own errors (404, 405, body too large) in the API's error shape.
func jsonErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": codeForStatus(status)})
}

func codeForStatus(status int) apperr.Code {
	switch {
	case status == fiber.StatusNotFound:
		return apperr.CodeNotFound
	case status == fiber.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case status == fiber.StatusForbidden:
		return apperr.CodeForbidden
	case status < fiber.StatusInternalServerError:
		return apperr.CodeValidation
	default:
		return apperr.CodeInternal
	}
}
