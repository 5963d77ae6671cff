package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"client-vetting/internal/app"
	"client-vetting/internal/config"
	"client-vetting/internal/db"
	"client-vetting/internal/domain"
	"client-vetting/internal/service"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// dbOnlyConfig permite migrar sin exigir las credenciales del LLM.
type dbOnlyConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

type tokenConfig struct {
	JWTSecret           string `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
}

// newApp arma el arbol de comandos. Los flags se crean por invocacion porque
// cli/v3 guarda estado en ellos.
func newApp(out io.Writer, logger *zap.Logger) *cli.Command {
	formatFlag := &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
	clientFlag := func() *cli.StringFlag {
		return &cli.StringFlag{Name: "client", Usage: "Client ID (uuid)", Required: true}
	}

	return &cli.Command{
		Name:    "vetctl",
		Version: version,
		Usage:   "Operator CLI for client vetting: migrations, trust scores, reports and research",
		Flags:   []cli.Flag{formatFlag},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply embedded database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var dbCfg dbOnlyConfig
					if err := env.Parse(&dbCfg); err != nil {
						return err
					}
					pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: dbCfg.DatabaseURL})
					if err != nil {
						return fmt.Errorf("db connect: %w", err)
					}
					defer pool.Close()
					if err := db.Migrate(ctx, pool); err != nil {
						return err
					}
					logger.Info("migrations applied")
					return nil
				},
			},
			{
				Name:  "recalc",
				Usage: "Recompute and persist the trust score of a client",
				Flags: []cli.Flag{clientFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, logger, func(a *app.App) error {
						client, err := a.Trust.Recalculate(ctx, cmd.String("client"))
						if err != nil {
							return err
						}
						return encode(out, cmd.String(formatFlag.Name), map[string]any{
							"client_id":   client.ID,
							"trust_score": client.TrustScore,
							"updated_at":  client.TrustScoreUpdatedAt,
						})
					})
				},
			},
			{
				Name:  "report",
				Usage: "Generate a vetting report for a client",
				Flags: []cli.Flag{clientFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, logger, func(a *app.App) error {
						report, err := a.Vetting.GenerateVettingReport(ctx, cmd.String("client"))
						if err != nil {
							return err
						}
						return encode(out, cmd.String(formatFlag.Name), report)
					})
				},
			},
			{
				Name:  "research",
				Usage: "Refresh company research for a client (uses the cache when fresh)",
				Flags: []cli.Flag{clientFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, logger, func(a *app.App) error {
						research, err := a.Vetting.PerformCompanyResearch(ctx, cmd.String("client"))
						if err != nil {
							return err
						}
						return encode(out, cmd.String(formatFlag.Name), research)
					})
				},
			},
			{
				Name:  "token",
				Usage: "Issue an access token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User ID", Required: true},
					&cli.StringFlag{Name: "tier", Usage: "Subscription tier [free, pro, premium]", Value: string(domain.TierFree)},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var tCfg tokenConfig
					if err := env.Parse(&tCfg); err != nil {
						return err
					}
					tier := domain.ParseTier(cmd.String("tier"))
					svc := service.NewJWTService(tCfg.JWTSecret, time.Duration(tCfg.JWTAccessTTLMinutes)*time.Minute)
					token, err := svc.IssueAccessToken(cmd.String("user"), tier)
					if err != nil {
						return err
					}
					return encode(out, cmd.String(formatFlag.Name), map[string]string{
						"access_token": token,
						"tier":         string(tier),
					})
				},
			},
		},
	}
}

func withApp(ctx context.Context, logger *zap.Logger, fn func(a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// encode escribe v como JSON indentado o YAML. YAML pasa por JSON para
// respetar los nombres de campo de los tags json.
func encode(out io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case formatYAML, "yml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		e := json.NewEncoder(out)
		e.SetIndent("", "  ")
		return e.Encode(v)
	}
}
