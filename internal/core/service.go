package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RulesStatus reports where the active rules came from and whether they are
// degraded (a document failed to load and the empty set is in use).
type RulesStatus func() (source string, degraded bool)

// Recorder receives per-analysis measurements.
type Recorder interface {
	ObserveAnalysis(v *Verdict)
	ObserveDeepScan(provider string, err error)
	ObserveCache(hit bool)
}

// ServiceConfig holds the tunables of PhishingService.
type ServiceConfig struct {
	Threshold         int
	CacheEnabled      bool
	DeepScanEnabled   bool
	DeepScanThreshold int
}

// PhishingService gates a message on sender trust, scores it in full or
// light mode, applies the threshold and optionally asks a remote scanner.
type PhishingService struct {
	scorer   Scorer
	trust    TrustChecker
	cache    ResultCache
	scanner  DeepScanner
	logger   *zap.Logger
	cfg      ServiceConfig
	status   RulesStatus
	recorder Recorder

	mu       sync.RWMutex
	lastScan *DeepScanReport
}

// ServiceOption configures a PhishingService.
type ServiceOption func(*PhishingService)

// WithResultCache enables verdict reuse through cache.
func WithResultCache(cache ResultCache) ServiceOption {
	return func(s *PhishingService) { s.cache = cache }
}

// WithDeepScanner sets the remote scanner.
func WithDeepScanner(scanner DeepScanner) ServiceOption {
	return func(s *PhishingService) { s.scanner = scanner }
}

// WithRulesStatus sets the rules status callback.
func WithRulesStatus(status RulesStatus) ServiceOption {
	return func(s *PhishingService) { s.status = status }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *PhishingService) { s.recorder = r }
}

// NewPhishingService creates a new phishing service
func NewPhishingService(scorer Scorer, trust TrustChecker, logger *zap.Logger, cfg ServiceConfig, opts ...ServiceOption) *PhishingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PhishingService{
		scorer: scorer,
		trust:  trust,
		logger: logger,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the flagging threshold
func (s *PhishingService) Threshold() int {
	return s.cfg.Threshold
}

// Analyze picks the mode from the sender's trust and scores email.
func (s *PhishingService) Analyze(ctx context.Context, email EmailData) (*Verdict, error) {
	return s.analyze(ctx, email, "")
}

// AnalyzeMode scores email in the given mode regardless of trust. The trust
// decision is still reported.
func (s *PhishingService) AnalyzeMode(ctx context.Context, email EmailData, mode Mode) (*Verdict, error) {
	return s.analyze(ctx, email, mode)
}

func (s *PhishingService) analyze(ctx context.Context, raw EmailData, forced Mode) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email := raw.Sanitized()
	if err := ValidateEmailData(email); err != nil {
		s.logger.Debug("Email data failed validation, scoring anyway",
			zap.String("sender", email.Sender),
			zap.Error(err))
	}

	trust := Untrusted()
	if s.trust != nil {
		trust = s.trust.Check(ctx, email.Sender)
	}

	mode := forced
	if mode == "" {
		mode = ModeFull
		if trust.Trusted {
			mode = ModeLight
		}
	}

	key := CacheKey(email, mode)
	if v := s.cached(ctx, key); v != nil {
		v.Trust = trust
		v.Cached = true
		s.observe(v)
		return v, nil
	}

	var result AnalysisResult
	if mode == ModeLight {
		result = s.scorer.LightCheck(email)
	} else {
		result = s.scorer.Analyze(email)
	}

	v := &Verdict{
		Result:       result,
		Mode:         mode,
		Trust:        trust,
		Threshold:    s.cfg.Threshold,
		Flagged:      result.Score >= s.cfg.Threshold,
		ProcessingID: uuid.New().String(),
		AnalyzedAt:   time.Now().UTC(),
	}
	if s.status != nil {
		v.RulesSource, v.Degraded = s.status()
	}

	if v.Degraded {
		s.logger.Warn("Scored with degraded rules",
			zap.String("processing_id", v.ProcessingID),
			zap.String("rules_source", v.RulesSource))
	}

	s.logger.Info("Email analyzed",
		zap.String("processing_id", v.ProcessingID),
		zap.String("sender", email.Sender),
		zap.String("mode", string(mode)),
		zap.String("trust_level", string(trust.Level)),
		zap.Int("score", result.Score),
		zap.Bool("flagged", v.Flagged))

	v.DeepScan = s.deepScan(ctx, email, v)

	if s.cfg.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, v); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	s.observe(v)
	return v, nil
}

func (s *PhishingService) cached(ctx context.Context, key string) *Verdict {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return nil
	}
	v, err := s.cache.Get(ctx, key)
	if s.recorder != nil {
		s.recorder.ObserveCache(err == nil && v != nil)
	}
	if err != nil || v == nil {
		return nil
	}
	s.logger.Debug("Cache hit for email", zap.String("processing_id", v.ProcessingID))
	return v
}

func (s *PhishingService) deepScan(ctx context.Context, email EmailData, v *Verdict) *DeepScanReport {
	if !s.cfg.DeepScanEnabled || s.scanner == nil || v.Result.Score < s.cfg.DeepScanThreshold {
		return nil
	}

	report, err := s.scanner.Scan(ctx, email, v.Result)
	if s.recorder != nil {
		s.recorder.ObserveDeepScan(s.scanner.Name(), err)
	}
	if err != nil {
		level := s.logger.Warn
		if errors.Is(err, context.Canceled) {
			level = s.logger.Debug
		}
		level("Deep scan failed, keeping local result",
			zap.String("processing_id", v.ProcessingID),
			zap.String("provider", s.scanner.Name()),
			zap.Error(err))
		return nil
	}
	if report == nil {
		return nil
	}

	report.ProcessingID = v.ProcessingID
	if report.ScannedAt.IsZero() {
		report.ScannedAt = time.Now().UTC()
	}
	if report.Provider == "" {
		report.Provider = s.scanner.Name()
	}

	s.mu.Lock()
	s.lastScan = report
	s.mu.Unlock()

	s.logger.Info("Deep scan completed",
		zap.String("processing_id", v.ProcessingID),
		zap.String("provider", report.Provider),
		zap.Bool("malicious", report.Malicious),
		zap.Float64("confidence", report.Confidence))
	return report
}

func (s *PhishingService) observe(v *Verdict) {
	if s.recorder != nil {
		s.recorder.ObserveAnalysis(v)
	}
}

// LastDeepScan returns the most recent deep-scan report, or nil.
func (s *PhishingService) LastDeepScan() *DeepScanReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastScan == nil {
		return nil
	}
	r := *s.lastScan
	return &r
}

// ClearCache drops cached verdicts. It is called when the rules change.
func (s *PhishingService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}
