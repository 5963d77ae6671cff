package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"client-vetting/internal/domain"
	"client-vetting/internal/repository"
)

type mockClientRepo struct {
	clients     map[string]domain.Client
	updateCalls int
	err         error
}

func newMockClientRepo(clients ...domain.Client) *mockClientRepo {
	m := &mockClientRepo{clients: make(map[string]domain.Client)}
	for _, c := range clients {
		m.clients[c.ID] = c
	}
	return m
}

func (m *mockClientRepo) GetByID(_ context.Context, id string) (domain.Client, error) {
	if m.err != nil {
		return domain.Client{}, m.err
	}
	c, ok := m.clients[id]
	if !ok {
		return domain.Client{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockClientRepo) UpdateTrustScore(_ context.Context, id string, score int, updatedAt time.Time) error {
	c, ok := m.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.updateCalls++
	c.TrustScore = &score
	c.TrustScoreUpdatedAt = &updatedAt
	m.clients[id] = c
	return nil
}

type mockReviewRepo struct {
	mu       sync.Mutex
	reviews  []domain.ClientReview
	setCalls map[string]int
}

func newMockReviewRepo(reviews ...domain.ClientReview) *mockReviewRepo {
	return &mockReviewRepo{reviews: reviews, setCalls: make(map[string]int)}
}

func (m *mockReviewRepo) ListByClientID(_ context.Context, clientID string) ([]domain.ClientReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ClientReview
	for _, rv := range m.reviews {
		if rv.ClientID == clientID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) SetSentiment(_ context.Context, reviewID string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls[reviewID]++
	for i := range m.reviews {
		if m.reviews[i].ID == reviewID && m.reviews[i].SentimentScore == nil {
			v := score
			m.reviews[i].SentimentScore = &v
		}
	}
	return nil
}

type mockRedFlagRepo struct {
	flags       []domain.ClientRedFlag
	createCalls int
}

func (m *mockRedFlagRepo) ListActiveByClientID(_ context.Context, clientID string) ([]domain.ClientRedFlag, error) {
	var out []domain.ClientRedFlag
	for _, f := range m.flags {
		if f.ClientID == clientID && f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockRedFlagRepo) CreateIfNoActive(_ context.Context, flag domain.ClientRedFlag) (bool, error) {
	m.createCalls++
	for _, f := range m.flags {
		if f.ClientID == flag.ClientID && strings.EqualFold(f.FlagType, flag.FlagType) && f.IsActive {
			return false, nil
		}
	}
	m.flags = append(m.flags, flag)
	return true, nil
}

type mockResearchRepo struct {
	records     map[string]domain.CompanyResearch
	upsertCalls int
}

func newMockResearchRepo(records ...domain.CompanyResearch) *mockResearchRepo {
	m := &mockResearchRepo{records: make(map[string]domain.CompanyResearch)}
	for _, r := range records {
		m.records[r.ClientID] = r
	}
	return m
}

func (m *mockResearchRepo) GetByClientID(_ context.Context, clientID string) (domain.CompanyResearch, error) {
	r, ok := m.records[clientID]
	if !ok {
		return domain.CompanyResearch{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *mockResearchRepo) Upsert(_ context.Context, research domain.CompanyResearch) (domain.CompanyResearch, error) {
	m.upsertCalls++
	if existing, ok := m.records[research.ClientID]; ok {
		research.ID = existing.ID
		research.ResearchedAt = existing.ResearchedAt
	}
	m.records[research.ClientID] = research
	return research, nil
}
