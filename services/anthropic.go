package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// AnthropicClient talks to the Anthropic Messages API
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates an Anthropic-backed LLM client
func NewAnthropicClient(apiKey, model string, maxTokens int) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY)")
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *AnthropicClient) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	timer := observability.GetMetrics().NewTimer()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		// The system prompt is stable across a batch run, so mark it
		// cacheable to cut input token spend on repeat calls.
		params.System = []anthropic.TextBlockParam{
			{
				Text:         systemPrompt,
				CacheControl: anthropic.NewCacheControlEphemeralParam(),
			},
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	timer.ObserveExternalAPI("anthropic", "messages")
	if err != nil {
		observability.GetMetrics().RecordExternalAPIError("anthropic", "messages", "api_error")
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: fmt.Sprintf("anthropic API call failed: %v", err),
			Model:  c.model,
		}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: "anthropic returned an empty completion",
			Model:  c.model,
		}
	}

	return &models.LLMResponse{
		Text:       text.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
		Model:      c.model,
		Metadata: map[string]any{
			"input_tokens":            message.Usage.InputTokens,
			"output_tokens":           message.Usage.OutputTokens,
			"cache_read_input_tokens": message.Usage.CacheReadInputTokens,
			"stop_reason":             string(message.StopReason),
		},
	}, nil
}

func (c *AnthropicClient) CountTokens(text string) int { return approximateTokens(text) }

func (c *AnthropicClient) Model() string { return c.model }
