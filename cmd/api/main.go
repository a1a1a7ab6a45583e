package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activities-api/internal/auth"
	"github.com/noah-isme/activities-api/internal/config"
	"github.com/noah-isme/activities-api/internal/database"
	"github.com/noah-isme/activities-api/internal/events"
	"github.com/noah-isme/activities-api/internal/handler"
	"github.com/noah-isme/activities-api/internal/middleware"
	"github.com/noah-isme/activities-api/internal/repository"
	"github.com/noah-isme/activities-api/internal/router"
	"github.com/noah-isme/activities-api/internal/service"
	cloud "github.com/noah-isme/activities-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, activity list caching disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		conn, err := events.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		publisher = events.NewNATSPublisher(conn, cfg.NATSSubject, logger)
	} else {
		logger.Warn().Msg("nats url not set, activity events are not published")
	}

	var storage service.FileStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials not set, photo uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := auth.RegisterPasswordValidation(validate); err != nil {
		log.Fatalf("failed to register password validation: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	valueRepo := repository.NewValueRepository(db)

	userService := service.NewUserService(userRepo, tokens, validate, logger)
	activityService := service.NewActivityService(activityRepo, redisClient, cfg.ActivitiesCacheTTL, publisher, validate, logger)
	valueService := service.NewValueService(valueRepo)
	seedService := service.NewSeedService(db, cfg.SeedEnabled, cfg.SeedToken, logger)

	var photoService service.PhotoService
	if storage != nil {
		photoService = service.NewPhotoService(storage, userRepo, cfg.UploadMaxSizeMB, logger)
	}

	userHandler := handler.NewUserHandler(userService, photoService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)
	valueHandler := handler.NewValueHandler(valueService, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	probes := map[string]handler.HealthProbe{
		"database": func(c *fiber.Ctx) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(c.UserContext())
		},
	}
	if redisClient != nil {
		probes["redis"] = func(c *fiber.Ctx) error {
			return redisClient.Ping(c.UserContext()).Err()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:     userHandler,
		ActivityHandler: activityHandler,
		ValueHandler:    valueHandler,
		SeedHandler:     seedHandler,
		JWTMiddleware:   middleware.JWTProtected(tokens),
		AuthRateLimiter: middleware.RateLimit("auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow),
		HealthProbes:    probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
