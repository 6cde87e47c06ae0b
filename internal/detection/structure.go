package detection

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/rules"
)

const lowContentLength = 120

var formMarkup = regexp.MustCompile(`(?i)\bform\b|<input\b`)

func ruleStructure(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	w := rs.Weights()

	if formMarkup.MatchString(m.email.Body) {
		findings = append(findings, finding("form", w.Form, "Form detected in the email"))
	}
	if len(m.links) > 0 && utf8.RuneCountInString(strings.TrimSpace(m.email.Body)) < lowContentLength {
		findings = append(findings, finding("low_content", w.LowContent, "Little text but links present"))
	}
	return findings
}
