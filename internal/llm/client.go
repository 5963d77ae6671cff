package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CompletionRequest describe una llamada de chat completion.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
}

// LLMClient define la interfaz para generar respuestas con un LLM.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Researcher ejecuta investigaciones con busqueda web (modelos compound).
type Researcher interface {
	Research(ctx context.Context, prompt string, maxIterations int) (string, error)
}

// Options agrupa la configuracion del cliente HTTP.
type Options struct {
	BaseURL           string
	APIKey            string
	ChatModel         string
	ResearchModel     string
	RequestsPerSecond int
	Timeout           time.Duration
}

// HTTPClient implementa LLMClient y Researcher contra una API OpenAI-compatible.
type HTTPClient struct {
	baseURL       string
	apiKey        string
	chatModel     string
	researchModel string
	client        *http.Client
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(opts Options, logger *zap.Logger) *HTTPClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = opts.RequestsPerSecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        opts.APIKey,
		chatModel:     opts.ChatModel,
		researchModel: opts.ResearchModel,
		client:        &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(limit, burst),
		logger:        logger,
	}
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := chatRequest{
		Model:       c.chatModel,
		Messages:    buildMessages(req.SystemPrompt, req.UserPrompt),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return c.do(ctx, body)
}

// Research usa el modelo de investigacion; maxIterations acota las busquedas del agente.
func (c *HTTPClient) Research(ctx context.Context, prompt string, maxIterations int) (string, error) {
	system := "You are a company research agent with web search. Return only a JSON object."
	if maxIterations > 0 {
		system += fmt.Sprintf(" Use at most %d search iterations.", maxIterations)
	}
	body := chatRequest{
		Model:    c.researchModel,
		Messages: buildMessages(system, prompt),
	}
	return c.do(ctx, body)
}

func (c *HTTPClient) do(ctx context.Context, reqBody chatRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("model", reqBody.Model),
			zap.String("body", truncate(string(respBody), 500)),
		)
		return "", fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("llm api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("llm empty response")
	}

	return cr.Choices[0].Message.Content, nil
}

func buildMessages(system, user string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: user})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
