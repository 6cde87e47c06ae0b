package detection

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/rules"
)

// RuleSource provides the rule set for one analysis.
type RuleSource interface {
	Get() *rules.RuleSet
}

// FindingObserver is told about every finding produced, before aggregation.
type FindingObserver func(mode core.Mode, f core.Finding)

// Analyzer runs the detectors against the current rule set.
type Analyzer struct {
	rules    RuleSource
	logger   *zap.Logger
	parallel bool
	observer FindingObserver
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithParallel fans detectors out over goroutines.
func WithParallel(parallel bool) Option {
	return func(a *Analyzer) { a.parallel = parallel }
}

// WithFindingObserver registers a callback for individual findings.
func WithFindingObserver(fn FindingObserver) Option {
	return func(a *Analyzer) { a.observer = fn }
}

// NewAnalyzer creates an analyzer reading rules from src.
func NewAnalyzer(src RuleSource, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{rules: src, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs every detector.
func (a *Analyzer) Analyze(email core.EmailData) core.AnalysisResult {
	return a.run(email, core.ModeFull, fullDetectors)
}

// LightCheck runs the reduced detector set.
func (a *Analyzer) LightCheck(email core.EmailData) core.AnalysisResult {
	return a.run(email, core.ModeLight, lightDetectors)
}

// Findings returns the raw findings of a run without aggregation.
func (a *Analyzer) Findings(email core.EmailData, mode core.Mode) []core.Finding {
	rs := a.rules.Get()
	if email.IsContentless() {
		return nil
	}
	m := newMessage(email, rs)
	if mode == core.ModeLight {
		return collect(m, rs, lightDetectors, a.parallel)
	}
	return collect(m, rs, fullDetectors, a.parallel)
}

func (a *Analyzer) run(email core.EmailData, mode core.Mode, detectors []ruleFunc) core.AnalysisResult {
	rs := a.rules.Get()
	if email.IsContentless() {
		return core.AnalysisResult{Score: 0, Reasons: []string{}}
	}

	m := newMessage(email, rs)
	findings := collect(m, rs, detectors, a.parallel)
	if a.observer != nil {
		for _, f := range findings {
			a.observer(mode, f)
		}
	}

	result := aggregate(findings, m, rs)
	a.logger.Debug("Email scored",
		zap.String("sender", m.email.Sender),
		zap.String("mode", string(mode)),
		zap.Int("score", result.Score),
		zap.Int("findings", len(findings)),
		zap.String("rules", rs.Source()))
	return result
}

// Analyze scores email with every detector against rs.
func Analyze(email core.EmailData, rs *rules.RuleSet) core.AnalysisResult {
	return score(email, rs, fullDetectors)
}

// LightCheck scores email with the reduced detector set against rs.
func LightCheck(email core.EmailData, rs *rules.RuleSet) core.AnalysisResult {
	return score(email, rs, lightDetectors)
}

func score(email core.EmailData, rs *rules.RuleSet, detectors []ruleFunc) core.AnalysisResult {
	if email.IsContentless() {
		return core.AnalysisResult{Score: 0, Reasons: []string{}}
	}
	m := newMessage(email, rs)
	return aggregate(collect(m, rs, detectors, false), m, rs)
}

// collect runs detectors and concatenates their findings in detector order.
// In parallel mode each detector writes to its own slot.
func collect(m *message, rs *rules.RuleSet, detectors []ruleFunc, parallel bool) []core.Finding {
	slots := make([][]core.Finding, len(detectors))
	if parallel {
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i, fn := range detectors {
			g.Go(func() error {
				slots[i] = fn(m, rs)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, fn := range detectors {
			slots[i] = fn(m, rs)
		}
	}

	var findings []core.Finding
	for _, s := range slots {
		findings = append(findings, s...)
	}
	return findings
}
