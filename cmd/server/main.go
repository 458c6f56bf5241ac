package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"loantrack-core/internal/adapter/api"
	"loantrack-core/internal/adapter/client"
	"loantrack-core/internal/adapter/store"
	"loantrack-core/internal/config"
	"loantrack-core/internal/logger"
	"loantrack-core/internal/observability"
	"loantrack-core/internal/usecase"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	// Postgres for loans and payments
	pg, err := store.NewPostgres(cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		zlog.Fatal("failed to open postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zlog.Fatal("postgres unreachable", zap.Error(err))
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		zlog.Fatal("failed to ensure schema", zap.Error(err))
	}

	// Redis for the chat log and the model-call budget
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	chatLog := store.NewRedisChatLog(rdb)
	limiter := store.NewRedisLimiter(rdb, cfg.SessionCallLimit)

	// Qdrant for the same-day parse cache
	qClient, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.QdrantHost,
		Port: cfg.QdrantPort,
	})
	if err != nil {
		zlog.Fatal("failed to connect to qdrant", zap.Error(err))
	}
	parseCache := store.NewQdrantCache(qClient, cfg.QdrantCollection, cfg.CacheThreshold)
	if err := parseCache.InitCollection(ctx, uint64(cfg.EmbedDim)); err != nil {
		zlog.Fatal("failed to init parse cache collection", zap.Error(err))
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.GoogleProject,
		Location: cfg.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		zlog.Fatal("failed to init genai client", zap.Error(err))
	}
	model := client.NewGeminiClient(genaiClient, cfg.ModelName)
	embedder := client.NewEmbedder(genaiClient, cfg.EmbedModel)

	metrics := observability.New()

	parser := usecase.NewParser(model, embedder, parseCache, limiter, chatLog, metrics, zlog, usecase.ParserConfig{
		Timezone:     cfg.Timezone,
		Parties:      cfg.Parties,
		DefaultPayer: cfg.DefaultPayer,
		ModelTimeout: cfg.ModelTimeout,
	})
	executor := usecase.NewExecutor(pg, metrics, zlog)

	// Pre-warm the embedder so the first command doesn't pay the cold start.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
			zlog.Warn("embedder warm-up failed", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "loantrack-core",
	})

	handler := api.NewHandler(parser, executor, chatLog, zlog, cfg.Parties, cfg.DefaultPayer, cfg.Timezone)
	api.SetupRouter(app, handler, metrics)

	zlog.Info("loantrack-core running", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
