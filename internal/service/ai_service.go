package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"client-vetting/internal/domain"
	"client-vetting/internal/llm"
)

const (
	maxThemeInputs         = 20
	maxThemes              = 10
	researchIterations     = 5
	fallbackRecommendation = "Unable to generate recommendation at this time."
)

const sentimentSystemPrompt = "You are a sentiment analysis expert. Analyze the sentiment of the given text and respond with ONLY a number between -1 (very negative) and 1 (very positive). No explanation needed."

const themesSystemPrompt = `You are an expert at analyzing feedback and extracting common themes. Extract 5-10 common themes from the reviews provided.
Return a JSON object: {"themes": ["theme", ...]}`

const redFlagsSystemPrompt = `You are a fraud detection expert specializing in freelance platforms.
Analyze client data and identify red flags. Return a JSON object {"red_flags": [...]} where each item has:
- flag_type: string (new_account, low_spend, cancelled_projects, off_platform, fake_reviews, etc.)
- severity: string (low, medium, high, critical)
- description: string (explanation)
Only return actual red flags, not positive indicators.`

const recommendationSystemPrompt = "You are a freelance consultant. Provide a brief recommendation (1-2 sentences) on whether to work with this client based on their trust score, strengths, and concerns."

var sentimentNumberRe = regexp.MustCompile(`[-+]?\d*\.?\d+`)

var errEmptyAIResponse = errors.New("empty ai response")

// AIService envuelve al colaborador LLM con prompts fijos y parseo tipado.
// Los errores se devuelven tal cual; el orquestador decide los fallbacks.
type AIService struct {
	logger     *zap.Logger
	llm        llm.LLMClient
	researcher llm.Researcher
}

func NewAIService(logger *zap.Logger, llmClient llm.LLMClient, researcher llm.Researcher) *AIService {
	return &AIService{
		logger:     logger,
		llm:        llmClient,
		researcher: researcher,
	}
}

// AnalyzeSentiment devuelve un valor en [-1, 1].
func (s *AIService) AnalyzeSentiment(ctx context.Context, text string) (float64, error) {
	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: sentimentSystemPrompt,
		UserPrompt:   "Analyze the sentiment of this review:\n\n" + text,
		Temperature:  0.1,
		MaxTokens:    10,
	})
	if err != nil {
		return 0, fmt.Errorf("sentiment completion: %w", err)
	}
	return parseSentiment(raw)
}

// ExtractThemes usa como maximo 20 textos y devuelve como maximo 10 temas.
func (s *AIService) ExtractThemes(ctx context.Context, reviews []string) ([]string, error) {
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if strings.TrimSpace(r) != "" {
			texts = append(texts, r)
		}
		if len(texts) == maxThemeInputs {
			break
		}
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: themesSystemPrompt,
		UserPrompt:   "Extract common themes from these client reviews:\n\n" + strings.Join(texts, "\n\n"),
		Temperature:  0.3,
		MaxTokens:    200,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("themes completion: %w", err)
	}
	return parseThemes(raw)
}

// DetectRedFlags pide al LLM red flags sobre la foto normalizada del cliente.
func (s *AIService) DetectRedFlags(ctx context.Context, signals domain.RedFlagSignals) ([]domain.DetectedRedFlag, error) {
	payload, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("marshal signals: %w", err)
	}
	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: redFlagsSystemPrompt,
		UserPrompt:   "Analyze this client data for red flags:\n\n" + string(payload),
		Temperature:  0.2,
		MaxTokens:    500,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("red flags completion: %w", err)
	}
	flags, dropped, err := parseRedFlags(raw)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.Warn("discarded malformed red flags", zap.Int("dropped", dropped))
	}
	return flags, nil
}

// GenerateRecommendation redacta 1-2 frases a partir del score y las señales.
func (s *AIService) GenerateRecommendation(ctx context.Context, score int, strengths, concerns, redFlags []string) (string, error) {
	raw, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: recommendationSystemPrompt,
		UserPrompt:   buildRecommendationPrompt(score, strengths, concerns, redFlags),
		Temperature:  0.5,
		MaxTokens:    150,
	})
	if err != nil {
		return "", fmt.Errorf("recommendation completion: %w", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errEmptyAIResponse
	}
	return text, nil
}

// ResearchCompany devuelve los hallazgos tipados y el objeto JSON crudo.
func (s *AIService) ResearchCompany(ctx context.Context, companyName, location string) (domain.ResearchFindings, json.RawMessage, error) {
	if s.researcher == nil {
		return domain.ResearchFindings{}, nil, errors.New("researcher not configured")
	}
	raw, err := s.researcher.Research(ctx, buildResearchPrompt(companyName, location), researchIterations)
	if err != nil {
		return domain.ResearchFindings{}, nil, fmt.Errorf("research call: %w", err)
	}
	return parseResearchFindings(raw)
}

func buildRecommendationPrompt(score int, strengths, concerns, redFlags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trust Score: %d/100\n\n", score)
	writeBulletSection(&b, "Strengths", strengths)
	writeBulletSection(&b, "Concerns", concerns)
	writeBulletSection(&b, "Red Flags", redFlags)
	b.WriteString("Provide a recommendation:")
	return b.String()
}

func writeBulletSection(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func buildResearchPrompt(companyName, location string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the company %q and provide:\n", companyName)
	b.WriteString("1. LinkedIn profile URL (if found)\n")
	b.WriteString("2. Official website URL\n")
	b.WriteString("3. Social media presence (Twitter, Facebook, Instagram)\n")
	b.WriteString("4. Employee count estimate\n")
	b.WriteString("5. Recent news or articles (last 6 months)\n")
	b.WriteString("6. Business registration verification\n\n")
	if location != "" {
		fmt.Fprintf(&b, "Additional context: Location: %s\n\n", location)
	}
	b.WriteString("Return the results as a JSON object with keys: linkedin_url, website_url, twitter_url, ")
	b.WriteString("facebook_url, instagram_url, employee_count, news_articles (list), business_registration (bool).")
	return b.String()
}

func parseSentiment(raw string) (float64, error) {
	match := sentimentNumberRe.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0, fmt.Errorf("sentiment not numeric: %q", truncateForLog(raw))
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sentiment: %w", err)
	}
	if v < -1 {
		return -1, nil
	}
	if v > 1 {
		return 1, nil
	}
	return v, nil
}

func parseThemes(raw string) ([]string, error) {
	themes, err := decodeLLMList[string](raw, "themes")
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(themes))
	for _, theme := range themes {
		theme = strings.TrimSpace(theme)
		if theme == "" {
			continue
		}
		out = append(out, theme)
		if len(out) == maxThemes {
			break
		}
	}
	return out, nil
}

type redFlagItem struct {
	FlagType    string `json:"flag_type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// parseRedFlags descarta items sin flag_type o con severidad desconocida.
func parseRedFlags(raw string) ([]domain.DetectedRedFlag, int, error) {
	items, err := decodeLLMList[redFlagItem](raw, "red_flags")
	if err != nil {
		return nil, 0, err
	}

	flags := make([]domain.DetectedRedFlag, 0, len(items))
	dropped := 0
	for _, item := range items {
		flagType := strings.ToLower(strings.TrimSpace(item.FlagType))
		severity, ok := domain.ParseSeverity(item.Severity)
		if flagType == "" || !ok {
			dropped++
			continue
		}
		flags = append(flags, domain.DetectedRedFlag{
			FlagType:    flagType,
			Severity:    severity,
			Description: strings.TrimSpace(item.Description),
		})
	}
	return flags, dropped, nil
}

type researchPayload struct {
	LinkedInURL          string            `json:"linkedin_url"`
	WebsiteURL           string            `json:"website_url"`
	TwitterURL           string            `json:"twitter_url"`
	FacebookURL          string            `json:"facebook_url"`
	InstagramURL         string            `json:"instagram_url"`
	EmployeeCount        json.RawMessage   `json:"employee_count"`
	NewsArticles         []json.RawMessage `json:"news_articles"`
	BusinessRegistration json.RawMessage   `json:"business_registration"`
}

var firstIntRe = regexp.MustCompile(`\d[\d,]*`)

func parseResearchFindings(raw string) (domain.ResearchFindings, json.RawMessage, error) {
	obj := extractFirstJSONObject(cleanLLMJSONResponse(raw))
	if obj == "" {
		return domain.ResearchFindings{}, nil, fmt.Errorf("no json object in research response")
	}
	var payload researchPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return domain.ResearchFindings{}, nil, fmt.Errorf("unmarshal research: %w", err)
	}
	findings := domain.ResearchFindings{
		LinkedInURL:          strings.TrimSpace(payload.LinkedInURL),
		WebsiteURL:           strings.TrimSpace(payload.WebsiteURL),
		TwitterURL:           strings.TrimSpace(payload.TwitterURL),
		FacebookURL:          strings.TrimSpace(payload.FacebookURL),
		InstagramURL:         strings.TrimSpace(payload.InstagramURL),
		EmployeeCount:        parseEmployeeCount(payload.EmployeeCount),
		NewsArticles:         payload.NewsArticles,
		BusinessRegistration: parseLooseBool(payload.BusinessRegistration),
	}
	return findings, json.RawMessage(obj), nil
}

// parseEmployeeCount acepta numeros o strings tipo "50-200" / "1,200+" (toma el primero).
func parseEmployeeCount(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	match := firstIntRe.FindString(s)
	if match == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}

// parseLooseBool trata como verdadero true, "true"/"yes"/"verified" u objetos no vacios.
func parseLooseBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "verified", "found":
			return true
		}
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return len(obj) > 0
	}
	return false
}

func truncateForLog(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:80] + "..."
}
