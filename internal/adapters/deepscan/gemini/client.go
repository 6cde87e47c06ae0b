package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/core"
)

// GeminiClient asks a Google Gemini model for a second opinion.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	prompts   *deepscan.PromptBuilder
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini scanner
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	prompts *deepscan.PromptBuilder,
	logger *zap.Logger,
) (*GeminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(deepscan.SystemPrompt))

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
		prompts:   prompts,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Name identifies the provider
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Scan sends the email and local findings to the model
func (c *GeminiClient) Scan(ctx context.Context, email core.EmailData, local core.AnalysisResult) (*core.DeepScanReport, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(c.prompts.Build(email, local)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, deepscan.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	parsed, err := deepscan.ParseResponse(sb.String())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini deep scan answered", zap.String("model", c.modelName))
	return parsed.Report(c.Name()), nil
}
