package ports

import (
	"context"

	"github.com/mikey/phishguard/internal/core"
)

// EmailAnalyzer produces a verdict for one email
type EmailAnalyzer interface {
	Analyze(ctx context.Context, email core.EmailData) (*core.Verdict, error)
}

// EmailFilter defines the interface for email filtering front ends
type EmailFilter interface {
	// ProcessEmail analyzes an email and returns the verdict
	ProcessEmail(ctx context.Context, email *core.EmailData) (*core.Verdict, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
