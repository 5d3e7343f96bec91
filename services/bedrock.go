package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// BedrockClient talks to Anthropic models hosted on AWS Bedrock
type BedrockClient struct {
	client    *bedrockruntime.Client
	model     string
	maxTokens int
}

type bedrockClaudeRequest struct {
	AnthropicVersion string                 `json:"anthropic_version"`
	MaxTokens        int                    `json:"max_tokens"`
	System           string                 `json:"system,omitempty"`
	Messages         []bedrockClaudeMessage `json:"messages"`
}

type bedrockClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockClient creates a Bedrock-backed LLM client using the default
// AWS credential chain for the given region.
func NewBedrockClient(ctx context.Context, region, model string, maxTokens int) (*BedrockClient, error) {
	if region == "" {
		region = "us-east-1"
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *BedrockClient) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	timer := observability.GetMetrics().NewTimer()

	body, err := json.Marshal(bedrockClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxTokens,
		System:           systemPrompt,
		Messages: []bedrockClaudeMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bedrock request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	timer.ObserveExternalAPI("bedrock", "invoke_model")
	if err != nil {
		observability.GetMetrics().RecordExternalAPIError("bedrock", "invoke_model", "api_error")
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: fmt.Sprintf("bedrock API call failed: %v", err),
			Model:  c.model,
		}
	}

	var parsed bedrockClaudeResponse
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: fmt.Sprintf("failed to decode bedrock response: %v", err),
			Model:  c.model,
		}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &models.AnalysisError{
			Symbol: snapshot.Symbol,
			Reason: "bedrock returned an empty completion",
			Model:  c.model,
		}
	}

	return &models.LLMResponse{
		Text:       text.String(),
		TokensUsed: parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		Model:      c.model,
		Metadata: map[string]any{
			"input_tokens":  parsed.Usage.InputTokens,
			"output_tokens": parsed.Usage.OutputTokens,
			"stop_reason":   parsed.StopReason,
		},
	}, nil
}

func (c *BedrockClient) CountTokens(text string) int { return approximateTokens(text) }

func (c *BedrockClient) Model() string { return c.model }
