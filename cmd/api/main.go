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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/internal/config"
	"github.com/intervu-dev/intervu-go-api/internal/database"
	"github.com/intervu-dev/intervu-go-api/internal/handler"
	"github.com/intervu-dev/intervu-go-api/internal/middleware"
	"github.com/intervu-dev/intervu-go-api/internal/repository"
	"github.com/intervu-dev/intervu-go-api/internal/router"
	"github.com/intervu-dev/intervu-go-api/internal/service"
	"github.com/intervu-dev/intervu-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var repo repository.InterviewRepository
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}

		repo = repository.NewInterviewRepository(db)
	} else {
		logger.Warn().Msg("no database configured, sessions live in process memory only")
		repo = repository.NewMemoryRepository()
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	completer, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create completion client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewEventPublisher(natsConn, logger)

	interviewService := service.NewInterviewService(repo, completer, events, validate, service.InterviewOptions{
		DefaultRoleProfile: cfg.DefaultRoleProfile,
		MaxTurns:           cfg.MaxTurns,
		ProviderTimeout:    cfg.ProviderTimeout,
	}, logger)
	reportService := service.NewReportService(repo, redisClient, cfg.ReportCacheTTL, logger)

	interviewHandler := handler.NewInterviewHandler(interviewService, validate, cfg.StreamingEnabled, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		InterviewHandler: interviewHandler,
		ReportHandler:    reportHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
