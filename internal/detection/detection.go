// Package detection scores an email for phishing signals.
//
// Each rule is a pure function over a prepared message and a rule set. Rules
// never block and never fail: malformed items are either skipped or reported
// as findings of their own.
package detection

import (
	"strings"
	"unicode"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/utils"
)

// ruleFunc inspects a message and returns zero or more findings.
type ruleFunc func(m *message, rs *rules.RuleSet) []core.Finding

// fullDetectors run in this order; reason order follows it.
var fullDetectors = []ruleFunc{
	ruleKeywords,
	ruleCTAPattern,
	rulePressurePattern,
	ruleCredentialPattern,
	ruleBillingPattern,
	ruleExclamations,
	ruleCapsSubject,
	ruleConfusable,
	ruleLinks,
	ruleAnchors,
	ruleAttachments,
	ruleSender,
	ruleStructure,
}

// lightDetectors is the reduced set used for trusted senders. Every function
// here produces findings the full set also produces.
var lightDetectors = []ruleFunc{
	ruleLinkScheme,
	ruleShortener,
	ruleDangerousAttachments,
	ruleCredentialPattern,
	rulePressurePattern,
}

// message is the per-analysis view shared by all rules.
type message struct {
	email     core.EmailData
	text      string
	links     []link
	mentioned []rules.Brand
}

type link struct {
	raw    string
	scheme string
	host   string
	base   string
}

func newMessage(e core.EmailData, rs *rules.RuleSet) *message {
	e = e.Sanitized()
	m := &message{
		email: e,
		text:  utils.Normalize(e.Subject + " " + e.Body),
		links: make([]link, 0, len(e.Links)),
	}
	for _, raw := range e.Links {
		m.links = append(m.links, parseLink(raw))
	}
	for _, b := range rs.Brands() {
		if containsWord(m.text, b.Name) {
			m.mentioned = append(m.mentioned, b)
		}
	}
	return m
}

func parseLink(raw string) link {
	l := link{raw: raw, scheme: domainutil.Scheme(raw)}
	if l.scheme == "data" {
		return l
	}
	l.host = domainutil.Hostname(raw)
	if l.host == "" {
		return l
	}
	if domainutil.IsIPLiteral(l.host) {
		l.base = l.host
	} else {
		l.base = domainutil.BaseDomain(l.host)
	}
	return l
}

// containsWord reports whether word occurs in text with no letter or digit
// directly on either side.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		if boundaryBefore(text, idx) && boundaryAfter(text, end) {
			return true
		}
		start = idx + 1
	}
	return false
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r := lastRune(text[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	for _, r := range text[end:] {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return true
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

func finding(rule string, score float64, reason string) core.Finding {
	return core.Finding{Rule: rule, Score: score, Reason: reason}
}

// Severity maps a 0-100 score to a label.
func Severity(score int) string {
	switch {
	case score >= 85:
		return "critical"
	case score >= 65:
		return "high"
	case score >= 35:
		return "medium"
	case score >= 15:
		return "low"
	default:
		return "none"
	}
}
