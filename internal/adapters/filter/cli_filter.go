package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
)

// CliFilter implements a command-line interface for phishing detection
type CliFilter struct {
	analyzer ports.EmailAnalyzer
	logger   *zap.Logger
	verbose  bool
	asJSON   bool
	mode     core.Mode
	out      io.Writer
}

type modeAnalyzer interface {
	AnalyzeMode(ctx context.Context, email core.EmailData, mode core.Mode) (*core.Verdict, error)
}

// CliOption configures a CliFilter
type CliOption func(*CliFilter)

// WithOutput redirects the report, stdout by default
func WithOutput(w io.Writer) CliOption {
	return func(f *CliFilter) { f.out = w }
}

// WithJSON prints the verdict as JSON instead of a summary
func WithJSON(enabled bool) CliOption {
	return func(f *CliFilter) { f.asJSON = enabled }
}

// WithMode forces light or full scoring regardless of sender trust. The
// analyzer must support forced modes.
func WithMode(mode core.Mode) CliOption {
	return func(f *CliFilter) { f.mode = mode }
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(analyzer ports.EmailAnalyzer, logger *zap.Logger, verbose bool, opts ...CliOption) *CliFilter {
	f := &CliFilter{
		analyzer: analyzer,
		logger:   logger,
		verbose:  verbose,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProcessEmail analyzes an email and prints the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.Verdict, error) {
	if email == nil {
		return nil, fmt.Errorf("email is nil")
	}
	f.logger.Debug("Processing email", zap.String("sender", email.Sender))

	start := time.Now()
	verdict, err := f.analyze(ctx, *email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	duration := time.Since(start)

	if f.asJSON {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return verdict, enc.Encode(verdict)
	}

	f.printSummary(email, verdict, duration)
	return verdict, nil
}

func (f *CliFilter) analyze(ctx context.Context, email core.EmailData) (*core.Verdict, error) {
	if f.mode == "" {
		return f.analyzer.Analyze(ctx, email)
	}
	ma, ok := f.analyzer.(modeAnalyzer)
	if !ok {
		return nil, fmt.Errorf("analyzer cannot force %s mode", f.mode)
	}
	return ma.AnalyzeMode(ctx, email, f.mode)
}

func (f *CliFilter) printSummary(email *core.EmailData, v *core.Verdict, duration time.Duration) {
	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.Sender)
	if email.SenderName != "" {
		fmt.Fprintf(f.out, "Display name: %s\n", email.SenderName)
	}
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Links: %d, attachments: %d\n", len(email.Links), len(email.Attachments))

	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Flagged: %t\n", v.Flagged)
	fmt.Fprintf(f.out, "Score: %d (threshold %d)\n", v.Result.Score, v.Threshold)
	fmt.Fprintf(f.out, "Mode: %s\n", v.Mode)
	fmt.Fprintf(f.out, "Trust: %s (%s)\n", v.Trust.Level, v.Trust.Source)
	if v.Degraded {
		fmt.Fprintf(f.out, "Rules: %s (degraded)\n", v.RulesSource)
	}
	if len(v.Result.Reasons) > 0 {
		fmt.Fprintf(f.out, "Reasons:\n")
		for _, r := range v.Result.Reasons {
			fmt.Fprintf(f.out, "  - %s\n", r)
		}
	}
	if v.DeepScan != nil {
		fmt.Fprintf(f.out, "Deep scan (%s): malicious=%t score=%d %s\n",
			v.DeepScan.Provider, v.DeepScan.Malicious, v.DeepScan.Score, v.DeepScan.Explanation)
	}
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
