package detection

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/rules"
)

const (
	minExclamations = 3
	capsRatioLimit  = 0.4
	minCapsWordLen  = 3
)

func ruleKeywords(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	w := rs.Weights().Keyword
	for _, k := range rs.Keywords() {
		if strings.Contains(m.text, k) {
			findings = append(findings, finding("keyword", w, fmt.Sprintf("Risky keyword: %q", k)))
		}
	}
	return findings
}

func ruleCTAPattern(m *message, rs *rules.RuleSet) []core.Finding {
	if !rs.Matches(rules.PatternCTA, m.text) {
		return nil
	}
	return []core.Finding{finding("cta", rs.Weights().CTA, "Generic call to action (click here / cliquez ici)")}
}

func rulePressurePattern(m *message, rs *rules.RuleSet) []core.Finding {
	if !rs.Matches(rules.PatternPressure, m.text) {
		return nil
	}
	return []core.Finding{finding("pressure", rs.Weights().Pressure, "Time pressure or short deadline")}
}

func ruleCredentialPattern(m *message, rs *rules.RuleSet) []core.Finding {
	if !rs.Matches(rules.PatternCredential, m.text) {
		return nil
	}
	return []core.Finding{finding("credential", rs.Weights().Credential, "Request for credentials or verification code")}
}

func ruleBillingPattern(m *message, rs *rules.RuleSet) []core.Finding {
	if !rs.Matches(rules.PatternBilling, m.text) {
		return nil
	}
	return []core.Finding{finding("billing", rs.Weights().Billing, "Financial or billing theme")}
}

func ruleExclamations(m *message, rs *rules.RuleSet) []core.Finding {
	if strings.Count(m.email.Subject, "!") < minExclamations && strings.Count(m.email.Body, "!") < minExclamations {
		return nil
	}
	return []core.Finding{finding("exclamations", rs.Weights().Exclamations, "Alarmist punctuation (several '!')")}
}

func ruleCapsSubject(m *message, rs *rules.RuleSet) []core.Finding {
	if capsRatio(m.email.Subject) <= capsRatioLimit {
		return nil
	}
	return []core.Finding{finding("caps_subject", rs.Weights().CapsSubject, "Subject mostly in CAPITALS")}
}

// capsRatio is the share of words of at least three runes written entirely
// in upper case letters (hyphens allowed).
func capsRatio(text string) float64 {
	words, caps := 0, 0
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) < minCapsWordLen {
			continue
		}
		words++
		if isAllCaps(w) {
			caps++
		}
	}
	if words == 0 {
		return 0
	}
	return float64(caps) / float64(words)
}

func isAllCaps(word string) bool {
	letters := 0
	for _, r := range word {
		switch {
		case r == '-':
		case unicode.IsUpper(r):
			letters++
		default:
			return false
		}
	}
	return letters > 0
}

func ruleConfusable(m *message, rs *rules.RuleSet) []core.Finding {
	if !domainutil.HasConfusableScript(m.email.Sender) && !domainutil.HasConfusableScript(m.text) {
		return nil
	}
	return []core.Finding{finding("confusable", rs.Weights().Confusable, "Non-Latin characters that may be confusable")}
}
