// Package deepscan holds what the remote second-opinion providers share: the
// prompt, the response decoding and the guard that keeps a slow or failing
// provider away from the scoring path.
package deepscan

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

var (
	// ErrSkipped is returned when a scan was not attempted
	ErrSkipped = errors.New("deep scan skipped")
	// ErrEmptyResponse is returned when the provider answered with nothing usable
	ErrEmptyResponse = errors.New("empty response from provider")
)

// SystemPrompt is sent as the system role where the provider supports one.
const SystemPrompt = "You are a phishing detection system. Respond only with JSON."

const promptFormat = `You are a phishing detection system. A local heuristic engine already scored
the email below. Give a second opinion.
Respond with a JSON object containing:
- is_phishing: boolean
- score: integer between 0 and 100 (higher means more likely phishing)
- confidence: number between 0 and 1
- explanation: string (one or two sentences)

Local score: %d/100
Local reasons:
%s

Email:
From: %s
Subject: %s
Links:
%s
Attachments: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// PromptBuilder renders the provider prompt.
type PromptBuilder struct {
	text        *utils.TextProcessor
	maxBodySize int
	minimal     bool
}

// NewPromptBuilder creates a builder. In minimal mode the body is withheld
// and only subject, sender, links and local reasons are sent.
func NewPromptBuilder(text *utils.TextProcessor, maxBodySize int, minimal bool) *PromptBuilder {
	if text == nil {
		text = utils.NewTextProcessor(nil)
	}
	return &PromptBuilder{text: text, maxBodySize: maxBodySize, minimal: minimal}
}

// Build renders the prompt for email.
func (b *PromptBuilder) Build(email core.EmailData, local core.AnalysisResult) string {
	body := "[withheld]"
	if !b.minimal {
		body = b.text.ProcessText(email.Body, b.maxBodySize)
	}
	attachments := "none"
	if len(email.Attachments) > 0 {
		attachments = strings.Join(email.Attachments, ", ")
	}
	return fmt.Sprintf(promptFormat,
		local.Score,
		bullets(local.Reasons),
		email.Sender,
		email.Subject,
		bullets(email.Links),
		attachments,
		body)
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}

// Response is the JSON object providers are asked to produce.
type Response struct {
	IsPhishing  bool    `json:"is_phishing"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ParseResponse decodes text, tolerating prose around the JSON object.
func ParseResponse(text string) (*Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		return &resp, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from provider response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse provider response as JSON: %w", err)
	}
	return &resp, nil
}

// Report converts the response. Scores given on a 0..1 scale are widened to
// 0..100.
func (r *Response) Report(provider string) *core.DeepScanReport {
	score := r.Score
	if score > 0 && score <= 1 {
		score *= 100
	}
	return &core.DeepScanReport{
		Provider:    provider,
		Malicious:   r.IsPhishing,
		Score:       int(math.Round(math.Max(0, math.Min(100, score)))),
		Confidence:  math.Max(0, math.Min(1, r.Confidence)),
		Explanation: r.Explanation,
		ScannedAt:   time.Now().UTC(),
	}
}
