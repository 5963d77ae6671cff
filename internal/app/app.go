package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"client-vetting/internal/config"
	"client-vetting/internal/db"
	"client-vetting/internal/llm"
	"client-vetting/internal/repository"
	"client-vetting/internal/service"
)

// App agrupa las dependencias ya cableadas que comparten la API y el CLI.
type App struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Clients  repository.ClientRepository
	Reviews  repository.ReviewRepository
	RedFlags repository.RedFlagRepository
	Research repository.CompanyResearchRepository
	Trust    *service.TrustScoreService
	AI       *service.AIService
	Vetting  *service.VettingService
	Quota    service.ReportQuota
	JWT      *service.JWTService
}

// New conecta Postgres (y Redis si esta configurado) y construye los servicios.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	a := &App{
		Pool:     pool,
		Clients:  repository.NewPgClientRepository(pool),
		Reviews:  repository.NewPgReviewRepository(pool),
		RedFlags: repository.NewPgRedFlagRepository(pool),
		Research: repository.NewPgCompanyResearchRepository(pool),
	}

	llmClient := llm.NewHTTPClient(llm.Options{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		ChatModel:         cfg.LLMChatModel,
		ResearchModel:     cfg.LLMResearchModel,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
		Timeout:           cfg.LLMTimeout(),
	}, logger)

	engine := service.NewTrustScoreEngine(cfg.Weights.Map(), nil)
	a.Trust = service.NewTrustScoreService(logger, a.Clients, engine, nil)
	a.AI = service.NewAIService(logger, llmClient, llmClient)
	a.Vetting = service.NewVettingService(logger, a.Clients, a.Reviews, a.RedFlags, a.Research, a.Trust, a.AI, service.VettingOptions{
		StaleDays:            cfg.TrustScoreStaleDays,
		ResearchCacheDays:    cfg.ResearchCacheDays,
		SentimentConcurrency: cfg.SentimentConcurrency,
	})

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory report quota", zap.Error(err))
			_ = client.Close()
		} else {
			a.Redis = client
			a.Quota = service.NewRedisReportQuota(client, cfg.FreeTierReports)
		}
		cancel()
	}
	if a.Quota == nil {
		a.Quota = service.NewMemoryReportQuota(cfg.FreeTierReports)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	a.JWT = service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)

	return a, nil
}

// Ping verifica la base de datos para /healthz.
func (a *App) Ping(ctx context.Context) error {
	return db.Ping(ctx, a.Pool)
}

// Close libera conexiones.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}
