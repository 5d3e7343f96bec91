package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// GeminiClient talks to the Google Gemini API
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGeminiClient creates a Gemini-backed LLM client
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int, temperature float64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (c *GeminiClient) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	timer := observability.GetMetrics().NewTimer()

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
		Temperature:     genai.Ptr(float32(c.temperature)),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	timer.ObserveExternalAPI("gemini", "generate_content")
	if err != nil {
		observability.GetMetrics().RecordExternalAPIError("gemini", "generate_content", "api_error")
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: fmt.Sprintf("gemini API call failed: %v", err),
			Model:  c.model,
		}
	}

	text := resp.Text()
	if text == "" {
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: "gemini returned an empty completion",
			Model:  c.model,
		}
	}

	tokensUsed := 0
	metadata := map[string]any{}
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		metadata["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		metadata["candidate_tokens"] = resp.UsageMetadata.CandidatesTokenCount
	}

	return &models.LLMResponse{
		Text:       text,
		TokensUsed: tokensUsed,
		Model:      c.model,
		Metadata:   metadata,
	}, nil
}

func (c *GeminiClient) CountTokens(text string) int { return approximateTokens(text) }

func (c *GeminiClient) Model() string { return c.model }
