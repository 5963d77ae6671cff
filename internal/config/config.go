package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"client-vetting/internal/domain"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations        bool   `env:"RUN_MIGRATIONS" envDefault:"false"`
	LLMAPIKey            string `env:"LLM_API_KEY,required,notEmpty"`
	LLMBaseURL           string `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMChatModel         string `env:"LLM_CHAT_MODEL" envDefault:"llama-3.3-70b-versatile"`
	LLMResearchModel     string `env:"LLM_RESEARCH_MODEL" envDefault:"compound-beta"`
	LLMRequestsPerSecond int    `env:"LLM_REQUESTS_PER_SECOND" envDefault:"5"`
	LLMTimeoutSeconds    int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	FreeTierReports      int    `env:"FREE_TIER_MONTHLY_REPORTS" envDefault:"5"`
	TrustScoreStaleDays  int    `env:"TRUST_SCORE_STALE_DAYS" envDefault:"7"`
	ResearchCacheDays    int    `env:"RESEARCH_CACHE_DAYS" envDefault:"30"`
	SentimentConcurrency int    `env:"SENTIMENT_CONCURRENCY" envDefault:"4"`

	Weights TrustWeightsConfig
}

// TrustWeightsConfig son los pesos del trust score. Deben sumar 100.
type TrustWeightsConfig struct {
	AccountAge          int `env:"TRUST_WEIGHT_ACCOUNT_AGE" envDefault:"20"`
	PaymentVerification int `env:"TRUST_WEIGHT_PAYMENT_VERIFICATION" envDefault:"15"`
	TotalSpent          int `env:"TRUST_WEIGHT_TOTAL_SPENT" envDefault:"15"`
	HireRate            int `env:"TRUST_WEIGHT_HIRE_RATE" envDefault:"15"`
	AverageRating       int `env:"TRUST_WEIGHT_AVERAGE_RATING" envDefault:"20"`
	ResponseTime        int `env:"TRUST_WEIGHT_RESPONSE_TIME" envDefault:"10"`
	CompletionRate      int `env:"TRUST_WEIGHT_COMPLETION_RATE" envDefault:"5"`
}

// Map convierte los pesos al tipo de dominio que recibe el motor de scoring.
func (w TrustWeightsConfig) Map() domain.TrustWeights {
	return domain.TrustWeights{
		domain.ComponentAccountAge:          w.AccountAge,
		domain.ComponentPaymentVerification: w.PaymentVerification,
		domain.ComponentTotalSpent:          w.TotalSpent,
		domain.ComponentHireRate:            w.HireRate,
		domain.ComponentAverageRating:       w.AverageRating,
		domain.ComponentResponseTime:        w.ResponseTime,
		domain.ComponentCompletionRate:      w.CompletionRate,
	}
}

// LoadConfig carga la configuración desde variables de entorno y la valida.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza pesos negativos o que no sumen 100.
func (c *Config) Validate() error {
	weights := c.Weights.Map()
	for _, component := range domain.TrustComponents {
		if weights[component] < 0 {
			return fmt.Errorf("trust weight %s must not be negative, got %d", component, weights[component])
		}
	}
	if sum := weights.Sum(); sum != 100 {
		return fmt.Errorf("trust weights must sum to 100, got %d", sum)
	}
	if c.TrustScoreStaleDays <= 0 {
		return fmt.Errorf("TRUST_SCORE_STALE_DAYS must be positive, got %d", c.TrustScoreStaleDays)
	}
	if c.ResearchCacheDays <= 0 {
		return fmt.Errorf("RESEARCH_CACHE_DAYS must be positive, got %d", c.ResearchCacheDays)
	}
	return nil
}

func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}
