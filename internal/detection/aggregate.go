package detection

import (
	"math"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/rules"
)

const (
	minScore = 0
	maxScore = 100

	attenuationReason = "Links only point to official domains (attenuation)"
)

// aggregate sums findings, applies the trusted-links attenuation, rounds and
// clamps the score. Reasons keep first-seen order without duplicates.
func aggregate(findings []core.Finding, m *message, rs *rules.RuleSet) core.AnalysisResult {
	total := 0.0
	reasons := make([]string, 0, len(findings)+1)
	seen := make(map[string]struct{}, len(findings)+1)
	add := func(reason string) {
		if _, dup := seen[reason]; dup {
			return
		}
		seen[reason] = struct{}{}
		reasons = append(reasons, reason)
	}

	for _, f := range findings {
		total += f.Score
		add(f.Reason)
	}

	if attenuates(m, rs) {
		total = math.Max(0, total-rs.Weights().Attenuation)
		add(attenuationReason)
	}

	score := int(math.Round(total))
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	return core.AnalysisResult{Score: score, Reasons: reasons}
}

// attenuates reports whether there is at least one link and every link is
// HTTPS to a trusted base domain.
func attenuates(m *message, rs *rules.RuleSet) bool {
	if len(m.links) == 0 {
		return false
	}
	for _, l := range m.links {
		if l.scheme != "https" || l.host == "" || !rs.IsTrusted(l.base) {
			return false
		}
	}
	return true
}
