package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"client-vetting/internal/domain"
	"client-vetting/internal/repository"
)

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrMissingCompanyName = errors.New("client has no company name")
)

// TrustScoreSummary es la vista del trust score que expone la API.
type TrustScoreSummary struct {
	ClientID   string                `json:"client_id"`
	TrustScore int                   `json:"trust_score"`
	TrustLevel domain.TrustLevel     `json:"trust_level"`
	Breakdown  domain.TrustBreakdown `json:"breakdown"`
	Strengths  []string              `json:"strengths"`
	Concerns   []string              `json:"concerns"`
	UpdatedAt  *time.Time            `json:"updated_at,omitempty"`
}

// TrustScoreService persiste el trust score calculado por el motor.
type TrustScoreService struct {
	logger  *zap.Logger
	clients repository.ClientRepository
	engine  *TrustScoreEngine
	now     func() time.Time
}

func NewTrustScoreService(logger *zap.Logger, clients repository.ClientRepository, engine *TrustScoreEngine, now func() time.Time) *TrustScoreService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TrustScoreService{
		logger:  logger,
		clients: clients,
		engine:  engine,
		now:     now,
	}
}

// Engine expone el motor puro para breakdown y strengths/concerns.
func (s *TrustScoreService) Engine() *TrustScoreEngine {
	return s.engine
}

// Recalculate recalcula y guarda el score y trust_score_updated_at.
func (s *TrustScoreService) Recalculate(ctx context.Context, clientID string) (domain.Client, error) {
	client, err := s.loadClient(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	return s.recalculate(ctx, client)
}

func (s *TrustScoreService) recalculate(ctx context.Context, client domain.Client) (domain.Client, error) {
	score, _ := s.engine.Compute(client)
	updatedAt := s.now()
	if err := s.clients.UpdateTrustScore(ctx, client.ID, score, updatedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("update trust score: %w", err)
	}
	client.TrustScore = &score
	client.TrustScoreUpdatedAt = &updatedAt
	client.LastUpdated = updatedAt

	s.logger.Info("trust score recalculated",
		zap.String("client_id", client.ID),
		zap.Int("trust_score", score),
	)
	return client, nil
}

// Summary devuelve el score guardado (o uno calculado al vuelo si nunca se guardo)
// con su breakdown. No persiste nada.
func (s *TrustScoreService) Summary(ctx context.Context, clientID string) (TrustScoreSummary, error) {
	client, err := s.loadClient(ctx, clientID)
	if err != nil {
		return TrustScoreSummary{}, err
	}
	score, breakdown := s.engine.Compute(client)
	if client.TrustScore != nil {
		score = *client.TrustScore
	}
	strengths, concerns := s.engine.StrengthsAndConcerns(client)
	return TrustScoreSummary{
		ClientID:   client.ID,
		TrustScore: score,
		TrustLevel: TrustLevelLabel(score),
		Breakdown:  breakdown,
		Strengths:  strengths,
		Concerns:   concerns,
		UpdatedAt:  client.TrustScoreUpdatedAt,
	}, nil
}

func (s *TrustScoreService) loadClient(ctx context.Context, clientID string) (domain.Client, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}
