package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// OpenAIClient talks to the OpenAI chat completions API
type OpenAIClient struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIClient creates an OpenAI-backed LLM client
func NewOpenAIClient(apiKey, model string, maxTokens int, temperature float64) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required (set OPENAI_API_KEY)")
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &OpenAIClient{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (c *OpenAIClient) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	timer := observability.GetMetrics().NewTimer()

	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(c.temperature),
	})
	timer.ObserveExternalAPI("openai", "chat_completions")
	if err != nil {
		observability.GetMetrics().RecordExternalAPIError("openai", "chat_completions", "api_error")
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: fmt.Sprintf("openai API call failed: %v", err),
			Model:  c.model,
		}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: "openai returned an empty completion",
			Model:  c.model,
		}
	}

	return &models.LLMResponse{
		Text:       completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
		Model:      c.model,
		Metadata: map[string]any{
			"prompt_tokens":     completion.Usage.PromptTokens,
			"completion_tokens": completion.Usage.CompletionTokens,
			"finish_reason":     string(completion.Choices[0].FinishReason),
		},
	}, nil
}

func (c *OpenAIClient) CountTokens(text string) int { return approximateTokens(text) }

func (c *OpenAIClient) Model() string { return c.model }
