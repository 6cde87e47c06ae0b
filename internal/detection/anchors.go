package detection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/utils"
)

var domainToken = regexp.MustCompile(`([a-z0-9.-]+\.[a-z]{2,})`)

func ruleAnchors(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	w := rs.Weights()

	for _, a := range m.email.Anchors {
		href := parseLink(a.Href)
		if href.host == "" {
			continue
		}
		hrefBase := href.base

		if token := domainToken.FindString(strings.ToLower(a.Text)); token != "" {
			textBase := domainutil.BaseDomain(strings.Trim(token, ".-"))
			if textBase != "" && textBase != hrefBase {
				findings = append(findings, finding("anchor_mismatch", w.AnchorMismatch,
					fmt.Sprintf("Link text shows %s but points to %s", textBase, hrefBase)))
			}
		}

		if rs.Matches(rules.PatternCTA, utils.Normalize(a.Text)) && !rs.IsTrusted(hrefBase) {
			findings = append(findings, finding("cta_anchor", w.CTAAnchor,
				fmt.Sprintf("Generic call-to-action link points to %s", hrefBase)))
		}
	}
	return findings
}
