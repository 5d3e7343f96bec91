package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-analyzer/config"
	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// LLMClient is the uniform contract across language-model providers
type LLMClient interface {
	// Analyze sends the rendered prompt plus stock data to the model and
	// returns raw text with token/cost metadata
	Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error)

	// CountTokens approximates the token count of a text (4 chars per token)
	CountTokens(text string) int

	// Model returns the model identifier this client talks to
	Model() string
}

// defaultModels maps provider names to their default model identifiers
var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-5-20250929",
	"openai":    "gpt-4o",
	"gemini":    "gemini-2.5-pro",
	"bedrock":   "anthropic.claude-3-5-sonnet-20241022-v2:0",
}

// NewLLMClient creates the client for the configured provider, wrapped in
// the given retry policy. Provider names are case-insensitive; unknown
// names fail fast with a configuration error.
func NewLLMClient(ctx context.Context, cfg *config.LLMConfig, retryCfg RetryConfig) (LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	model := cfg.Model
	if model == "" {
		model = defaultModels[provider]
	}

	var inner LLMClient
	var err error

	switch provider {
	case "anthropic":
		inner, err = NewAnthropicClient(cfg.AnthropicAPIKey, model, cfg.MaxTokens)
	case "openai":
		inner, err = NewOpenAIClient(cfg.OpenAIAPIKey, model, cfg.MaxTokens, cfg.Temperature)
	case "gemini":
		inner, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, model, cfg.MaxTokens, cfg.Temperature)
	case "bedrock":
		inner, err = NewBedrockClient(ctx, cfg.BedrockRegion, model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported providers: anthropic, openai, gemini, bedrock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WrapWithRetry(inner, retryCfg), nil
}

// WrapWithRetry wraps an LLM client in the given retry policy. Calls also
// run through the shared LLM circuit breaker.
func WrapWithRetry(inner LLMClient, cfg RetryConfig) LLMClient {
	return &retryingLLMClient{inner: inner, retryCfg: cfg, breaker: BreakerLLM}
}

type retryingLLMClient struct {
	inner    LLMClient
	retryCfg RetryConfig
	breaker  string
}

func (c *retryingLLMClient) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	metrics := observability.GetMetrics()

	cfg := c.retryCfg
	cfg.OnRetry = func(err error, attempt int, delay time.Duration) {
		metrics.RecordRetryAttempt("llm_analyze")
		observability.Warn("retrying LLM analysis",
			"symbol", snapshot.Symbol,
			"model", c.inner.Model(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
	}

	var response *models.LLMResponse
	err := WithRetry(ctx, cfg, func() error {
		resp, err := WithCircuitBreaker(ctx, c.breaker, func() (*models.LLMResponse, error) {
			return c.inner.Analyze(ctx, prompt, snapshot, systemPrompt)
		})
		if err != nil {
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		var analysisErr *models.AnalysisError
		if errors.As(err, &analysisErr) {
			return nil, err
		}
		return nil, &models.AnalysisError{Symbol: snapshot.Symbol, Reason: err.Error(), Model: c.inner.Model()}
	}

	metrics.RecordLLMTokens(response.Model, response.TokensUsed)
	return response, nil
}

func (c *retryingLLMClient) CountTokens(text string) int { return c.inner.CountTokens(text) }

func (c *retryingLLMClient) Model() string { return c.inner.Model() }

// approximateTokens is the fallback token estimate where a provider exposes
// no counting API: 4 characters per token.
func approximateTokens(text string) int {
	return len(text) / 4
}
