package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"client-vetting/internal/domain"
	"client-vetting/internal/repository"
)

const (
	positiveSentimentThreshold = 0.3
	negativeSentimentThreshold = -0.3

	// emptyResearchPayload se guarda cuando la investigacion falla; ambos scores quedan en 0.
	emptyResearchPayload = `{}`
)

// VettingOptions ajusta las politicas de frescura del orquestador.
type VettingOptions struct {
	StaleDays            int
	ResearchCacheDays    int
	SentimentConcurrency int
	Now                  func() time.Time
}

// VettingService arma el reporte de vetting y refresca la investigacion de empresa.
type VettingService struct {
	logger   *zap.Logger
	clients  repository.ClientRepository
	reviews  repository.ReviewRepository
	redFlags repository.RedFlagRepository
	research repository.CompanyResearchRepository
	trust    *TrustScoreService
	ai       *AIService

	staleDays         int
	researchCacheDays int
	concurrency       int
	now               func() time.Time
}

func NewVettingService(
	logger *zap.Logger,
	clients repository.ClientRepository,
	reviews repository.ReviewRepository,
	redFlags repository.RedFlagRepository,
	research repository.CompanyResearchRepository,
	trust *TrustScoreService,
	ai *AIService,
	opts VettingOptions,
) *VettingService {
	if opts.StaleDays <= 0 {
		opts.StaleDays = 7
	}
	if opts.ResearchCacheDays <= 0 {
		opts.ResearchCacheDays = 30
	}
	if opts.SentimentConcurrency <= 0 {
		opts.SentimentConcurrency = 1
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &VettingService{
		logger:            logger,
		clients:           clients,
		reviews:           reviews,
		redFlags:          redFlags,
		research:          research,
		trust:             trust,
		ai:                ai,
		staleDays:         opts.StaleDays,
		researchCacheDays: opts.ResearchCacheDays,
		concurrency:       opts.SentimentConcurrency,
		now:               opts.Now,
	}
}

// GenerateVettingReport arma el reporte completo. Solo falla si el cliente no existe
// o si el store falla; los pasos que dependen del LLM degradan a valores neutros.
func (s *VettingService) GenerateVettingReport(ctx context.Context, clientID string) (domain.VettingReport, error) {
	client, err := s.trust.loadClient(ctx, clientID)
	if err != nil {
		return domain.VettingReport{}, err
	}

	if s.needsRecalculation(client) {
		client, err = s.trust.recalculate(ctx, client)
		if err != nil {
			return domain.VettingReport{}, err
		}
	}

	engine := s.trust.Engine()
	breakdown := engine.Breakdown(client)
	strengths, concerns := engine.StrengthsAndConcerns(client)

	flags, err := s.detectAndStoreRedFlags(ctx, client)
	if err != nil {
		return domain.VettingReport{}, err
	}

	reviews, err := s.reviews.ListByClientID(ctx, client.ID)
	if err != nil {
		return domain.VettingReport{}, fmt.Errorf("list reviews: %w", err)
	}
	if err := s.scoreSentiments(ctx, reviews); err != nil {
		return domain.VettingReport{}, err
	}
	summary := summarizeReviews(reviews)
	themes := s.extractThemes(ctx, client.ID, reviews)

	var research *domain.CompanyResearch
	cr, err := s.research.GetByClientID(ctx, client.ID)
	switch {
	case err == nil:
		research = &cr
	case !errors.Is(err, repository.ErrNotFound):
		return domain.VettingReport{}, fmt.Errorf("get company research: %w", err)
	}

	score := 0
	if client.TrustScore != nil {
		score = *client.TrustScore
	}

	flagSummaries := make([]string, 0, len(flags))
	for _, f := range flags {
		flagSummaries = append(flagSummaries, f.Summary())
	}
	recommendation, err := s.ai.GenerateRecommendation(ctx, score, strengths, concerns, flagSummaries)
	if err != nil {
		s.logger.Warn("recommendation fallback", zap.String("client_id", client.ID), zap.Error(err))
		recommendation = fallbackRecommendation
	}

	return domain.VettingReport{
		Client:              client,
		TrustScore:          score,
		TrustLevel:          TrustLevelLabel(score),
		TrustScoreBreakdown: breakdown,
		Strengths:           strengths,
		Concerns:            concerns,
		RedFlags:            flags,
		ReviewsSummary:      summary,
		CommonThemes:        themes,
		CompanyResearch:     research,
		Recommendation:      recommendation,
	}, nil
}

// PerformCompanyResearch devuelve la investigacion cacheada si tiene menos de
// ResearchCacheDays dias; si no, consulta al investigador y hace upsert. Si el
// investigador falla o responde basura se guarda un registro vacio con score 0.
func (s *VettingService) PerformCompanyResearch(ctx context.Context, clientID string) (domain.CompanyResearch, error) {
	client, err := s.trust.loadClient(ctx, clientID)
	if err != nil {
		return domain.CompanyResearch{}, err
	}

	existing, err := s.research.GetByClientID(ctx, client.ID)
	switch {
	case err == nil:
		if wholeDaysSince(s.now(), existing.LastUpdated) < s.researchCacheDays {
			return existing, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return domain.CompanyResearch{}, fmt.Errorf("get company research: %w", err)
	}

	companyName := client.DisplayName()
	if companyName == "" {
		return domain.CompanyResearch{}, ErrMissingCompanyName
	}

	findings, raw, err := s.ai.ResearchCompany(ctx, companyName, client.Location)
	if err != nil {
		s.logger.Warn("company research fallback", zap.String("client_id", client.ID), zap.Error(err))
		findings = domain.ResearchFindings{}
		raw = json.RawMessage(emptyResearchPayload)
	}

	now := s.now()
	record := buildCompanyResearch(client.ID, companyName, findings, raw)
	record.ID = uuid.NewString()
	record.ResearchedAt = now
	record.LastUpdated = now

	saved, err := s.research.Upsert(ctx, record)
	if err != nil {
		return domain.CompanyResearch{}, fmt.Errorf("upsert company research: %w", err)
	}
	s.logger.Info("company research refreshed",
		zap.String("client_id", client.ID),
		zap.Int("social_media_presence_score", saved.SocialMediaPresenceScore),
		zap.Int("digital_footprint_score", saved.DigitalFootprintScore),
	)
	return saved, nil
}

// GetCompanyResearch devuelve la investigacion guardada sin refrescarla.
func (s *VettingService) GetCompanyResearch(ctx context.Context, clientID string) (domain.CompanyResearch, error) {
	if _, err := s.trust.loadClient(ctx, clientID); err != nil {
		return domain.CompanyResearch{}, err
	}
	return s.research.GetByClientID(ctx, clientID)
}

func (s *VettingService) needsRecalculation(client domain.Client) bool {
	if client.TrustScore == nil || client.TrustScoreUpdatedAt == nil {
		return true
	}
	return wholeDaysSince(s.now(), *client.TrustScoreUpdatedAt) > s.staleDays
}

// detectAndStoreRedFlags crea los flags detectados cuyo tipo no tenga ya uno activo
// y devuelve la lista de activos recargada.
func (s *VettingService) detectAndStoreRedFlags(ctx context.Context, client domain.Client) ([]domain.ClientRedFlag, error) {
	active, err := s.redFlags.ListActiveByClientID(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("list red flags: %w", err)
	}
	// Los tipos detectados ya vienen en minusculas; los guardados pueden no estarlo.
	seen := make(map[string]struct{}, len(active))
	for _, f := range active {
		seen[strings.ToLower(f.FlagType)] = struct{}{}
	}

	detected, err := s.ai.DetectRedFlags(ctx, s.redFlagSignals(client))
	if err != nil {
		s.logger.Warn("red flag detection fallback", zap.String("client_id", client.ID), zap.Error(err))
		detected = nil
	}

	created := 0
	for _, d := range detected {
		if _, ok := seen[d.FlagType]; ok {
			continue
		}
		seen[d.FlagType] = struct{}{}
		ok, err := s.redFlags.CreateIfNoActive(ctx, domain.ClientRedFlag{
			ID:          uuid.NewString(),
			ClientID:    client.ID,
			FlagType:    d.FlagType,
			Severity:    d.Severity,
			Description: d.Description,
			DetectedAt:  s.now(),
			IsActive:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("create red flag: %w", err)
		}
		if ok {
			created++
		}
	}
	if created == 0 {
		return nonNilFlags(active), nil
	}

	s.logger.Info("red flags created", zap.String("client_id", client.ID), zap.Int("count", created))
	reloaded, err := s.redFlags.ListActiveByClientID(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("reload red flags: %w", err)
	}
	return nonNilFlags(reloaded), nil
}

func (s *VettingService) redFlagSignals(client domain.Client) domain.RedFlagSignals {
	days, _ := client.AccountAgeDays(s.now())
	signals := domain.RedFlagSignals{
		AccountAgeDays:  days,
		TotalJobsPosted: client.TotalJobsPosted,
		TotalHires:      client.TotalHires,
		TotalSpent:      client.TotalSpent,
		VerifiedPayment: client.VerifiedPayment,
		ReviewCount:     client.ReviewCount,
	}
	if client.HireRate != nil {
		signals.HireRate = *client.HireRate
	}
	if client.AverageRating != nil {
		signals.AverageRating = *client.AverageRating
	}
	return signals
}

// scoreSentiments calcula y guarda el sentimiento de las reseñas con texto que aun
// no lo tienen. Si el LLM falla se guarda 0.0; el valor es de escritura unica y la
// reseña no se vuelve a evaluar.
func (s *VettingService) scoreSentiments(ctx context.Context, reviews []domain.ClientReview) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range reviews {
		rv := &reviews[i]
		if rv.ReviewText == "" || rv.SentimentScore != nil {
			continue
		}
		g.Go(func() error {
			score, err := s.ai.AnalyzeSentiment(gctx, rv.ReviewText)
			if err != nil {
				s.logger.Warn("sentiment fallback",
					zap.String("client_id", rv.ClientID),
					zap.String("review_id", rv.ID),
					zap.Error(err),
				)
				score = 0
			}
			if err := s.reviews.SetSentiment(gctx, rv.ID, score); err != nil {
				return fmt.Errorf("set sentiment: %w", err)
			}
			rv.SentimentScore = &score
			return nil
		})
	}
	return g.Wait()
}

func (s *VettingService) extractThemes(ctx context.Context, clientID string, reviews []domain.ClientReview) []string {
	texts := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		if rv.ReviewText != "" {
			texts = append(texts, rv.ReviewText)
		}
	}
	if len(texts) == 0 {
		return []string{}
	}
	themes, err := s.ai.ExtractThemes(ctx, texts)
	if err != nil {
		s.logger.Warn("themes fallback", zap.String("client_id", clientID), zap.Error(err))
		return []string{}
	}
	return themes
}

// summarizeReviews agrega rating y sentimiento. Las reseñas sin sentimiento
// cuentan como 0 y caen en el bucket neutral.
func summarizeReviews(reviews []domain.ClientReview) domain.ReviewsSummary {
	total := len(reviews)
	if total == 0 {
		return domain.ReviewsSummary{}
	}
	var ratingSum, sentimentSum float64
	summary := domain.ReviewsSummary{TotalReviews: total}
	for _, rv := range reviews {
		ratingSum += float64(rv.Rating)
		if rv.SentimentScore == nil {
			continue
		}
		sentiment := *rv.SentimentScore
		sentimentSum += sentiment
		switch {
		case sentiment > positiveSentimentThreshold:
			summary.PositiveCount++
		case sentiment < negativeSentimentThreshold:
			summary.NegativeCount++
		}
	}
	summary.NeutralCount = total - summary.PositiveCount - summary.NegativeCount
	summary.AverageRating = round2(ratingSum / float64(total))
	summary.AverageSentiment = round2(sentimentSum / float64(total))
	return summary
}

func nonNilFlags(flags []domain.ClientRedFlag) []domain.ClientRedFlag {
	if flags == nil {
		return []domain.ClientRedFlag{}
	}
	return flags
}

func wholeDaysSince(now, then time.Time) int {
	return int(now.Sub(then).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
