package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"client-vetting/internal/domain"
	"client-vetting/internal/llm"
	"client-vetting/internal/repository"
)

type vettingFixture struct {
	clients    *mockClientRepo
	reviews    *mockReviewRepo
	flags      *mockRedFlagRepo
	research   *mockResearchRepo
	llm        *llm.MockClient
	researcher *llm.MockResearcher
	svc        *VettingService
}

// scriptedLLM responde segun el system prompt de cada llamada.
type scriptedLLM struct {
	sentiment      string
	sentimentErr   error
	themes         string
	themesErr      error
	redFlags       string
	redFlagsErr    error
	recommendation string
	recommendErr   error
	sentimentCalls int32
}

func (s *scriptedLLM) respond(req llm.CompletionRequest) (string, error) {
	switch req.SystemPrompt {
	case sentimentSystemPrompt:
		atomic.AddInt32(&s.sentimentCalls, 1)
		return s.sentiment, s.sentimentErr
	case themesSystemPrompt:
		return s.themes, s.themesErr
	case redFlagsSystemPrompt:
		return s.redFlags, s.redFlagsErr
	case recommendationSystemPrompt:
		return s.recommendation, s.recommendErr
	}
	return "", errors.New("unexpected prompt")
}

func newVettingFixture(script *scriptedLLM, client domain.Client, reviews []domain.ClientReview, flags []domain.ClientRedFlag, research ...domain.CompanyResearch) *vettingFixture {
	f := &vettingFixture{
		clients:    newMockClientRepo(client),
		reviews:    newMockReviewRepo(reviews...),
		flags:      &mockRedFlagRepo{flags: flags},
		research:   newMockResearchRepo(research...),
		llm:        &llm.MockClient{Respond: script.respond},
		researcher: &llm.MockResearcher{},
	}
	now := func() time.Time { return fixedNow }
	logger := zap.NewNop()
	engine := NewTrustScoreEngine(defaultWeights(), now)
	trust := NewTrustScoreService(logger, f.clients, engine, now)
	ai := NewAIService(logger, f.llm, f.researcher)
	f.svc = NewVettingService(logger, f.clients, f.reviews, f.flags, f.research, trust, ai, VettingOptions{
		StaleDays:            7,
		ResearchCacheDays:    30,
		SentimentConcurrency: 2,
		Now:                  now,
	})
	return f
}

func defaultScript() *scriptedLLM {
	return &scriptedLLM{
		sentiment:      "0.8",
		themes:         `{"themes": ["clear communication", "fast payment"]}`,
		redFlags:       `{"red_flags": []}`,
		recommendation: "Safe to work with.",
	}
}

func baseClient() domain.Client {
	return domain.Client{
		ID:                 "c1",
		Name:               "Jane",
		CompanyName:        "Acme",
		Location:           "Berlin",
		AccountCreatedDate: daysAgo(400),
		VerifiedPayment:    true,
		TotalSpent:         12000,
		TotalJobsPosted:    10,
		TotalHires:         8,
	}
}

func withScore(c domain.Client, score int, updatedDaysAgo int) domain.Client {
	c.TrustScore = &score
	c.TrustScoreUpdatedAt = daysAgo(updatedDaysAgo)
	return c
}

func TestGenerateVettingReport_ClientNotFound(t *testing.T) {
	f := newVettingFixture(defaultScript(), baseClient(), nil, nil)

	_, err := f.svc.GenerateVettingReport(context.Background(), "missing")
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestGenerateVettingReport_Staleness(t *testing.T) {
	t.Run("eight days old recomputes", func(t *testing.T) {
		f := newVettingFixture(defaultScript(), withScore(baseClient(), 10, 8), nil, nil)

		report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.clients.updateCalls != 1 {
			t.Fatalf("expected recompute, got %d updates", f.clients.updateCalls)
		}
		if report.TrustScore == 10 {
			t.Fatalf("expected fresh score, got stale value")
		}
		if !report.Client.TrustScoreUpdatedAt.Equal(fixedNow) {
			t.Fatalf("expected updated_at=now, got %v", report.Client.TrustScoreUpdatedAt)
		}
	})

	t.Run("six days old is reused", func(t *testing.T) {
		f := newVettingFixture(defaultScript(), withScore(baseClient(), 10, 6), nil, nil)

		report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.clients.updateCalls != 0 {
			t.Fatalf("expected no recompute, got %d updates", f.clients.updateCalls)
		}
		if report.TrustScore != 10 || report.TrustLevel != domain.TrustVeryPoor {
			t.Fatalf("expected stored score 10/Very Poor, got %d/%s", report.TrustScore, report.TrustLevel)
		}
	})

	t.Run("never scored recomputes", func(t *testing.T) {
		f := newVettingFixture(defaultScript(), baseClient(), nil, nil)

		if _, err := f.svc.GenerateVettingReport(context.Background(), "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.clients.updateCalls != 1 {
			t.Fatalf("expected recompute, got %d updates", f.clients.updateCalls)
		}
	})
}

func TestGenerateVettingReport_RedFlagDedup(t *testing.T) {
	script := defaultScript()
	script.redFlags = `{"red_flags": [
		{"flag_type": "low_spend", "severity": "medium", "description": "spends little"},
		{"flag_type": "new_account", "severity": "high", "description": "brand new"},
		{"flag_type": "new_account", "severity": "high", "description": "duplicate in batch"},
		{"flag_type": "weird", "severity": "apocalyptic", "description": "unknown severity"}
	]}`
	existing := []domain.ClientRedFlag{{
		ID: "f1", ClientID: "c1", FlagType: "low_spend", Severity: domain.SeverityLow,
		Description: "already known", IsActive: true,
	}}
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), nil, existing)

	for i := 0; i < 2; i++ {
		report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if len(report.RedFlags) != 2 {
			t.Fatalf("run %d: expected 2 active flags, got %d", i, len(report.RedFlags))
		}
	}

	if len(f.flags.flags) != 2 {
		t.Fatalf("expected one new flag persisted, got %d total", len(f.flags.flags))
	}
	if f.flags.createCalls != 1 {
		t.Fatalf("expected a single insert attempt across runs, got %d", f.flags.createCalls)
	}
	for _, req := range f.llm.Requests {
		if req.SystemPrompt == recommendationSystemPrompt && !strings.Contains(req.UserPrompt, "- new_account: brand new") {
			t.Fatalf("expected recommendation prompt to include new flag, got %q", req.UserPrompt)
		}
	}
}

func TestGenerateVettingReport_RedFlagDedupIgnoresCase(t *testing.T) {
	script := defaultScript()
	script.redFlags = `{"red_flags": [{"flag_type": "new_account", "severity": "high", "description": "brand new"}]}`
	existing := []domain.ClientRedFlag{{
		ID: "f1", ClientID: "c1", FlagType: "New_Account", Severity: domain.SeverityMedium,
		Description: "imported", IsActive: true,
	}}
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), nil, existing)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.flags.createCalls != 0 {
		t.Fatalf("expected no insert for a flag already active in another case, got %d", f.flags.createCalls)
	}
	if len(report.RedFlags) != 1 || report.RedFlags[0].ID != "f1" {
		t.Fatalf("expected only the stored flag, got %+v", report.RedFlags)
	}
}

func TestGenerateVettingReport_SentimentWriteOnce(t *testing.T) {
	prior := 0.9
	reviews := []domain.ClientReview{
		{ID: "r1", ClientID: "c1", Rating: 5, ReviewText: "great", SentimentScore: &prior},
		{ID: "r2", ClientID: "c1", Rating: 4, ReviewText: "good"},
		{ID: "r3", ClientID: "c1", Rating: 3},
	}
	script := defaultScript()
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), reviews, nil)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.GenerateVettingReport(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := atomic.LoadInt32(&script.sentimentCalls); got != 1 {
		t.Fatalf("expected exactly one sentiment call across runs, got %d", got)
	}
	if f.reviews.setCalls["r1"] != 0 || f.reviews.setCalls["r2"] != 1 || f.reviews.setCalls["r3"] != 0 {
		t.Fatalf("unexpected sentiment writes: %+v", f.reviews.setCalls)
	}
	if *f.reviews.reviews[0].SentimentScore != 0.9 {
		t.Fatalf("expected stored sentiment to be untouched")
	}

	s := report.ReviewsSummary
	if s.TotalReviews != 3 || s.PositiveCount != 2 || s.NegativeCount != 0 || s.NeutralCount != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.AverageRating != 4 {
		t.Fatalf("expected average rating 4, got %v", s.AverageRating)
	}
	if s.AverageSentiment != 0.57 {
		t.Fatalf("expected average sentiment 0.57, got %v", s.AverageSentiment)
	}
}

func TestGenerateVettingReport_SoftFallbacks(t *testing.T) {
	script := &scriptedLLM{
		sentimentErr: errors.New("llm down"),
		themesErr:    errors.New("llm down"),
		redFlagsErr:  errors.New("llm down"),
		recommendErr: errors.New("llm down"),
	}
	reviews := []domain.ClientReview{{ID: "r1", ClientID: "c1", Rating: 2, ReviewText: "slow to pay"}}
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), reviews, nil)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("expected report despite llm failures, got %v", err)
	}
	if report.Recommendation != fallbackRecommendation {
		t.Fatalf("expected fallback recommendation, got %q", report.Recommendation)
	}
	if report.CommonThemes == nil || len(report.CommonThemes) != 0 {
		t.Fatalf("expected empty themes, got %v", report.CommonThemes)
	}
	if report.RedFlags == nil || len(report.RedFlags) != 0 {
		t.Fatalf("expected empty red flags, got %v", report.RedFlags)
	}
	if report.ReviewsSummary.AverageSentiment != 0 || report.ReviewsSummary.NeutralCount != 1 {
		t.Fatalf("expected neutral sentiment fallback, got %+v", report.ReviewsSummary)
	}
	if f.reviews.setCalls["r1"] != 1 {
		t.Fatalf("expected fallback sentiment persisted once, got %d calls", f.reviews.setCalls["r1"])
	}
	if got := f.reviews.reviews[0].SentimentScore; got == nil || *got != 0 {
		t.Fatalf("expected stored sentiment 0, got %v", got)
	}
}

func TestGenerateVettingReport_MalformedAIJSON(t *testing.T) {
	script := defaultScript()
	script.themes = "I think the themes are communication and payment"
	script.redFlags = "```json\n{\"red_flags\": [{\"flag_type\": \"off_platform\", \"severity\": \"critical\", \"description\": \"asks for email\"}]}\n```"
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), []domain.ClientReview{{ID: "r1", ClientID: "c1", Rating: 5, ReviewText: "ok"}}, nil)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.CommonThemes) != 0 {
		t.Fatalf("expected empty themes for malformed json, got %v", report.CommonThemes)
	}
	if len(report.RedFlags) != 1 || report.RedFlags[0].Severity != domain.SeverityCritical {
		t.Fatalf("expected fenced red flag json to parse, got %+v", report.RedFlags)
	}
}

func TestGenerateVettingReport_NoReviewsSkipsThemes(t *testing.T) {
	script := defaultScript()
	f := newVettingFixture(script, withScore(baseClient(), 70, 1), nil, nil)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, req := range f.llm.Requests {
		if req.SystemPrompt == themesSystemPrompt {
			t.Fatalf("themes call must be skipped without review text")
		}
	}
	if report.ReviewsSummary != (domain.ReviewsSummary{}) {
		t.Fatalf("expected zero summary, got %+v", report.ReviewsSummary)
	}
	if report.CompanyResearch != nil {
		t.Fatalf("expected no company research")
	}
}

func TestGenerateVettingReport_IncludesStoredResearchWithoutRefresh(t *testing.T) {
	stored := domain.CompanyResearch{ID: "cr1", ClientID: "c1", CompanyName: "Acme", LastUpdated: fixedNow.AddDate(0, -6, 0)}
	f := newVettingFixture(defaultScript(), withScore(baseClient(), 70, 1), nil, nil, stored)

	report, err := f.svc.GenerateVettingReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CompanyResearch == nil || report.CompanyResearch.ID != "cr1" {
		t.Fatalf("expected stored research in report, got %+v", report.CompanyResearch)
	}
	if len(f.researcher.Prompts) != 0 || f.research.upsertCalls != 0 {
		t.Fatalf("report must not refresh research")
	}
}

const researchResponse = `Here is what I found:
{"linkedin_url": "https://linkedin.com/company/acme", "website_url": "https://acme.test",
 "twitter_url": "https://x.com/acme", "employee_count": "50-200",
 "news_articles": [{"title": "Acme raises"}, {"title": "Acme hires"}], "business_registration": true,
 "extra": "ignored"}`

func TestPerformCompanyResearch_Cache(t *testing.T) {
	t.Run("29 days old is returned unchanged", func(t *testing.T) {
		stored := domain.CompanyResearch{ID: "cr1", ClientID: "c1", CompanyName: "Acme", DigitalFootprintScore: 42, LastUpdated: *daysAgo(29)}
		f := newVettingFixture(defaultScript(), baseClient(), nil, nil, stored)
		f.researcher.Response = researchResponse

		got, err := f.svc.PerformCompanyResearch(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DigitalFootprintScore != 42 || len(f.researcher.Prompts) != 0 || f.research.upsertCalls != 0 {
			t.Fatalf("expected cached research, got %+v", got)
		}
	})

	t.Run("31 days old is refreshed", func(t *testing.T) {
		stored := domain.CompanyResearch{ID: "cr1", ClientID: "c1", CompanyName: "Acme", ResearchedAt: *daysAgo(90), LastUpdated: *daysAgo(31)}
		f := newVettingFixture(defaultScript(), baseClient(), nil, nil, stored)
		f.researcher.Response = researchResponse

		got, err := f.svc.PerformCompanyResearch(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.researcher.Prompts) != 1 || f.research.upsertCalls != 1 {
			t.Fatalf("expected one research call and upsert")
		}
		if !strings.Contains(f.researcher.Prompts[0], `"Acme"`) || !strings.Contains(f.researcher.Prompts[0], "Location: Berlin") {
			t.Fatalf("unexpected research prompt: %q", f.researcher.Prompts[0])
		}
		if got.ID != "cr1" || !got.LastUpdated.Equal(fixedNow) {
			t.Fatalf("expected upsert of existing record, got id=%s last_updated=%v", got.ID, got.LastUpdated)
		}
		// linkedin 30 + twitter 20 + website 15
		if got.SocialMediaPresenceScore != 65 {
			t.Fatalf("expected social score 65, got %d", got.SocialMediaPresenceScore)
		}
		// website 25 + linkedin 20 + employees 10 + twitter 10 + news 10 + registration 10
		if got.DigitalFootprintScore != 85 {
			t.Fatalf("expected footprint score 85, got %d", got.DigitalFootprintScore)
		}
		if got.RecentNewsCount != 2 || !got.BusinessRegistrationFound || *got.LinkedInEmployeeCount != 50 {
			t.Fatalf("unexpected research fields: %+v", got)
		}
	})
}

func TestPerformCompanyResearch_Errors(t *testing.T) {
	t.Run("missing client", func(t *testing.T) {
		f := newVettingFixture(defaultScript(), baseClient(), nil, nil)
		if _, err := f.svc.PerformCompanyResearch(context.Background(), "nope"); !errors.Is(err, ErrClientNotFound) {
			t.Fatalf("expected ErrClientNotFound, got %v", err)
		}
	})

	t.Run("no name", func(t *testing.T) {
		c := baseClient()
		c.Name = ""
		c.CompanyName = ""
		f := newVettingFixture(defaultScript(), c, nil, nil)
		if _, err := f.svc.PerformCompanyResearch(context.Background(), "c1"); !errors.Is(err, ErrMissingCompanyName) {
			t.Fatalf("expected ErrMissingCompanyName, got %v", err)
		}
	})

	t.Run("falls back to personal name", func(t *testing.T) {
		c := baseClient()
		c.CompanyName = ""
		c.Location = ""
		f := newVettingFixture(defaultScript(), c, nil, nil)
		f.researcher.Response = `{}`
		got, err := f.svc.PerformCompanyResearch(context.Background(), "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.CompanyName != "Jane" || strings.Contains(f.researcher.Prompts[0], "Additional context") {
			t.Fatalf("unexpected research for personal name: %+v", got)
		}
	})

	for name, setup := range map[string]func(r *llm.MockResearcher){
		"upstream failure": func(r *llm.MockResearcher) { r.Err = errors.New("timeout") },
		"prose response":   func(r *llm.MockResearcher) { r.Response = "I could not find anything about this company." },
	} {
		t.Run(name+" stores empty record", func(t *testing.T) {
			f := newVettingFixture(defaultScript(), baseClient(), nil, nil)
			setup(f.researcher)
			got, err := f.svc.PerformCompanyResearch(context.Background(), "c1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.research.upsertCalls != 1 {
				t.Fatalf("expected 1 upsert, got %d", f.research.upsertCalls)
			}
			if got.SocialMediaPresenceScore != 0 || got.DigitalFootprintScore != 0 {
				t.Fatalf("expected zero scores, got social=%d footprint=%d", got.SocialMediaPresenceScore, got.DigitalFootprintScore)
			}
			if string(got.ResearchData) != "{}" || got.CompanyName != "Acme" {
				t.Fatalf("unexpected fallback record: %+v", got)
			}
			if !got.LastUpdated.Equal(fixedNow) || got.ID == "" {
				t.Fatalf("expected fresh record stamped at now, got %+v", got)
			}
		})
	}
}

func TestGetCompanyResearch_NotFound(t *testing.T) {
	f := newVettingFixture(defaultScript(), baseClient(), nil, nil)
	if _, err := f.svc.GetCompanyResearch(context.Background(), "c1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound, got %v", err)
	}
}
