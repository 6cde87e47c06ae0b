package core

import (
	"context"
)

// Scorer runs the detector pipeline over one email.
type Scorer interface {
	// Analyze runs every detector
	Analyze(email EmailData) AnalysisResult

	// LightCheck runs the reduced detector set used for trusted senders
	LightCheck(email EmailData) AnalysisResult
}

// TrustChecker decides whether a sender is trusted.
type TrustChecker interface {
	Check(ctx context.Context, sender string) TrustDecision
}

// TrustStore persists the user-maintained trust lists.
type TrustStore interface {
	// Get returns the requested lists; missing lists come back empty
	Get(ctx context.Context, keys ...ListKey) (TrustLists, error)

	// Set replaces each list present in lists
	Set(ctx context.Context, lists TrustLists) error
}

// ResultCache remembers verdicts by email fingerprint.
type ResultCache interface {
	// Get retrieves a cached verdict
	Get(ctx context.Context, key string) (*Verdict, error)

	// Set stores a verdict
	Set(ctx context.Context, key string, verdict *Verdict) error

	// Clear drops every entry
	Clear(ctx context.Context) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// DeepScanner asks a remote service for a second opinion.
type DeepScanner interface {
	// Scan examines an email that already scored high locally
	Scan(ctx context.Context, email EmailData, local AnalysisResult) (*DeepScanReport, error)

	// Name identifies the provider in logs and reports
	Name() string
}
