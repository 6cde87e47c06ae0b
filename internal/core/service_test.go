package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScorer struct {
	full, light int
	calls       []Mode
}

func (f *fakeScorer) Analyze(EmailData) AnalysisResult {
	f.calls = append(f.calls, ModeFull)
	return AnalysisResult{Score: f.full, Reasons: []string{"full"}}
}

func (f *fakeScorer) LightCheck(EmailData) AnalysisResult {
	f.calls = append(f.calls, ModeLight)
	return AnalysisResult{Score: f.light, Reasons: []string{"light"}}
}

type fakeTrust struct {
	decision TrustDecision
	seen     string
}

func (f *fakeTrust) Check(_ context.Context, sender string) TrustDecision {
	f.seen = sender
	return f.decision
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]Verdict
}

func (c *mapCache) Get(_ context.Context, key string) (*Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return &v, nil
}

func (c *mapCache) Set(_ context.Context, key string, v *Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = *v
	return nil
}

func (c *mapCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string]Verdict{}
	return nil
}

func (c *mapCache) Cleanup(context.Context) error { return nil }

type fakeScanner struct {
	report *DeepScanReport
	err    error
	calls  int
}

func (f *fakeScanner) Scan(context.Context, EmailData, AnalysisResult) (*DeepScanReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	return &r, nil
}

func (f *fakeScanner) Name() string { return "fake" }

type countingRecorder struct {
	analyses, scans, hits, misses int
}

func (r *countingRecorder) ObserveAnalysis(*Verdict) { r.analyses++ }

func (r *countingRecorder) ObserveDeepScan(string, error) { r.scans++ }

func (r *countingRecorder) ObserveCache(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

var phish = EmailData{Subject: "Urgent", Sender: " Alerts@Bank.example ", Body: "verify your account"}

func TestPhishingService_ModeFollowsTrust(t *testing.T) {
	tests := []struct {
		name      string
		decision  TrustDecision
		wantMode  Mode
		wantScore int
	}{
		{"untrusted runs full", Untrusted(), ModeFull, 80},
		{"trusted runs light", TrustDecision{Trusted: true, Source: SourceTrustedList, Level: LevelDomain}, ModeLight, 20},
		{"ignored runs light", TrustDecision{Trusted: true, Source: SourceIgnoredList, Level: LevelUser}, ModeLight, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &fakeScorer{full: 80, light: 20}
			trust := &fakeTrust{decision: tt.decision}
			s := NewPhishingService(scorer, trust, zap.NewNop(), ServiceConfig{Threshold: 40})

			v, err := s.Analyze(context.Background(), phish)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, v.Mode)
			assert.Equal(t, tt.wantScore, v.Result.Score)
			assert.Equal(t, tt.decision, v.Trust)
			assert.Equal(t, tt.wantScore >= 40, v.Flagged)
			assert.NotEmpty(t, v.ProcessingID)
			assert.Equal(t, "alerts@bank.example", trust.seen)
		})
	}
}

func TestPhishingService_ThresholdInclusive(t *testing.T) {
	s := NewPhishingService(&fakeScorer{full: 40}, nil, nil, ServiceConfig{Threshold: 40})
	v, err := s.Analyze(context.Background(), phish)
	require.NoError(t, err)
	assert.True(t, v.Flagged)
	assert.Equal(t, 40, v.Threshold)
}

func TestPhishingService_ForcedMode(t *testing.T) {
	scorer := &fakeScorer{full: 80, light: 20}
	s := NewPhishingService(scorer, &fakeTrust{decision: Untrusted()}, nil, ServiceConfig{Threshold: 40})

	v, err := s.AnalyzeMode(context.Background(), phish, ModeLight)
	require.NoError(t, err)
	assert.Equal(t, ModeLight, v.Mode)
	assert.False(t, v.Flagged)
}

func TestPhishingService_Cache(t *testing.T) {
	ctx := context.Background()
	scorer := &fakeScorer{full: 80}
	rec := &countingRecorder{}
	s := NewPhishingService(scorer, nil, nil, ServiceConfig{Threshold: 40, CacheEnabled: true},
		WithResultCache(&mapCache{m: map[string]Verdict{}}),
		WithRecorder(rec))

	first, err := s.Analyze(ctx, phish)
	require.NoError(t, err)
	second, err := s.Analyze(ctx, phish)
	require.NoError(t, err)

	assert.Len(t, scorer.calls, 1)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ProcessingID, second.ProcessingID)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 2, rec.analyses)

	require.NoError(t, s.ClearCache(ctx))
	_, err = s.Analyze(ctx, phish)
	require.NoError(t, err)
	assert.Len(t, scorer.calls, 2)
}

func TestPhishingService_RulesStatus(t *testing.T) {
	s := NewPhishingService(&fakeScorer{}, nil, nil, ServiceConfig{Threshold: 40},
		WithRulesStatus(func() (string, bool) { return "rules.yaml", true }))

	v, err := s.Analyze(context.Background(), phish)
	require.NoError(t, err)
	assert.True(t, v.Degraded)
	assert.Equal(t, "rules.yaml", v.RulesSource)
}

func TestPhishingService_DeepScan(t *testing.T) {
	ctx := context.Background()
	scanner := &fakeScanner{report: &DeepScanReport{Malicious: true, Confidence: 0.9}}
	cfg := ServiceConfig{Threshold: 40, DeepScanEnabled: true, DeepScanThreshold: 70}

	low := NewPhishingService(&fakeScorer{full: 69}, nil, nil, cfg, WithDeepScanner(scanner))
	v, err := low.Analyze(ctx, phish)
	require.NoError(t, err)
	assert.Nil(t, v.DeepScan)
	assert.Equal(t, 0, scanner.calls)
	assert.Nil(t, low.LastDeepScan())

	high := NewPhishingService(&fakeScorer{full: 70}, nil, nil, cfg, WithDeepScanner(scanner))
	v, err = high.Analyze(ctx, phish)
	require.NoError(t, err)
	require.NotNil(t, v.DeepScan)
	assert.Equal(t, "fake", v.DeepScan.Provider)
	assert.Equal(t, v.ProcessingID, v.DeepScan.ProcessingID)
	assert.False(t, v.DeepScan.ScannedAt.IsZero())

	last := high.LastDeepScan()
	require.NotNil(t, last)
	assert.True(t, last.Malicious)
}

func TestPhishingService_DeepScanFailureKeepsLocalResult(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("provider down")}
	rec := &countingRecorder{}
	s := NewPhishingService(&fakeScorer{full: 90}, nil, nil,
		ServiceConfig{Threshold: 40, DeepScanEnabled: true, DeepScanThreshold: 70},
		WithDeepScanner(scanner), WithRecorder(rec))

	v, err := s.Analyze(context.Background(), phish)
	require.NoError(t, err)
	assert.Equal(t, 90, v.Result.Score)
	assert.True(t, v.Flagged)
	assert.Nil(t, v.DeepScan)
	assert.Equal(t, 1, rec.scans)
}

func TestPhishingService_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPhishingService(&fakeScorer{}, nil, nil, ServiceConfig{})
	_, err := s.Analyze(ctx, phish)
	assert.ErrorIs(t, err, context.Canceled)
}
