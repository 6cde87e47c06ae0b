package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/core"
)

// ChatCompleter is the part of the OpenAI client the scanner uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient asks an OpenAI chat model for a second opinion.
type OpenAIClient struct {
	client      ChatCompleter
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	prompts     *deepscan.PromptBuilder
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI scanner
func NewOpenAIClient(
	client ChatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	prompts *deepscan.PromptBuilder,
	logger *zap.Logger,
) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		prompts:     prompts,
		logger:      logger,
	}
}

// Name identifies the provider
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Scan sends the email and local findings to the model
func (c *OpenAIClient) Scan(ctx context.Context, email core.EmailData, local core.AnalysisResult) (*core.DeepScanReport, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: deepscan.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.prompts.Build(email, local),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, deepscan.ErrEmptyResponse
	}

	parsed, err := deepscan.ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI deep scan answered",
		zap.String("model", c.modelName),
		zap.String("response_id", resp.ID))

	return parsed.Report(c.Name()), nil
}
