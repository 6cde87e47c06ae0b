package detection

import (
	"fmt"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/similarity"
	"github.com/mikey/phishguard/internal/utils"
)

const localPrefixLen = 5

func ruleSender(m *message, rs *rules.RuleSet) []core.Finding {
	w := rs.Weights()
	local, domain := domainutil.SplitAddress(m.email.Sender)
	if domain == "" {
		return []core.Finding{finding("sender_unparsable", w.SenderUnparsable, "Sender address cannot be parsed")}
	}

	var findings []core.Finding
	if local != "" && !strings.Contains(domain, runePrefix(local, localPrefixLen)) {
		findings = append(findings, finding("sender_incoherent", w.SenderIncoherent,
			"Sender local part does not match its domain"))
	}

	if tld := domainutil.TLD(domain); rs.IsRiskyTLD(tld) {
		findings = append(findings, finding("sender_risky_tld", w.SenderRiskyTLD,
			fmt.Sprintf("Sender domain on risky TLD: .%s", tld)))
	}

	if m.email.SenderName == "" {
		return findings
	}
	name := utils.Normalize(m.email.SenderName)
	base := domainutil.BaseDomain(domain)
	for _, b := range rs.Brands() {
		if !containsWord(name, b.Name) {
			continue
		}
		match, _ := similarity.Classify(base, b.Official, similarity.DefaultCloseness)
		switch match {
		case similarity.Lookalike:
			findings = append(findings, finding("sender_brand_lookalike", w.BrandLookalike,
				fmt.Sprintf("Display name shows brand %q with look-alike sender domain %s", b.Name, base)))
		case similarity.Unrelated:
			findings = append(findings, finding("sender_brand_mismatch", w.SenderBrandMismatch,
				fmt.Sprintf("Display name shows brand %q but sender domain is %s", b.Name, base)))
		}
	}
	return findings
}

func runePrefix(s string, n int) string {
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}
