package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/phishguard/internal/adapters/deepscan"
	"github.com/mikey/phishguard/internal/core"
)

type fakeInvoker struct {
	body    []byte
	payload map[string]interface{}
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if err := json.Unmarshal(in.Body, &f.payload); err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockClient_Models(t *testing.T) {
	answer := `{"is_phishing":true,"score":75,"confidence":0.6,"explanation":"lookalike"}`
	quoted, _ := json.Marshal(answer)

	tests := []struct {
		name       string
		modelID    string
		body       string
		payloadKey string
	}{
		{"claude", "anthropic.claude-v2", `{"completion":` + string(quoted) + `}`, "max_tokens_to_sample"},
		{"titan", "amazon.titan-text-express-v1", `{"results":[{"outputText":` + string(quoted) + `}]}`, "textGenerationConfig"},
		{"generic", "meta.llama3", `{"output":` + string(quoted) + `}`, "max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeInvoker{body: []byte(tt.body)}
			c := NewBedrockClient(fake, tt.modelID, 200, 0.1, 0.9, deepscan.NewPromptBuilder(nil, 0, false), nil)

			report, err := c.Scan(context.Background(), core.EmailData{Subject: "x"}, core.AnalysisResult{})
			require.NoError(t, err)
			assert.Equal(t, "bedrock", report.Provider)
			assert.Equal(t, 75, report.Score)
			assert.Contains(t, fake.payload, tt.payloadKey)
		})
	}
}

func TestBedrockClient_EmptyTitan(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"results":[]}`)}
	c := NewBedrockClient(fake, "amazon.titan-text-lite-v1", 200, 0, 1, deepscan.NewPromptBuilder(nil, 0, false), nil)

	_, err := c.Scan(context.Background(), core.EmailData{}, core.AnalysisResult{})
	assert.ErrorIs(t, err, deepscan.ErrEmptyResponse)
}
