package detection

import (
	"fmt"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/rules"
	"github.com/mikey/phishguard/internal/similarity"
)

const deepSubdomainDepth = 3

// hostlessSchemes have no host and are never reported as unparsable.
var hostlessSchemes = map[string]struct{}{
	"mailto": {},
	"tel":    {},
}

func ruleLinks(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	w := rs.Weights()

	for _, l := range m.links {
		findings = append(findings, schemeFindings(l, rs)...)
		if l.scheme == "data" {
			continue
		}
		if l.host == "" {
			if _, ok := hostlessSchemes[l.scheme]; !ok {
				findings = append(findings, finding("unparsable_link", w.UnparsableLink, "Link without a resolvable host"))
			}
			continue
		}

		findings = append(findings, shortenerFindings(l, rs)...)
		if tld := domainutil.TLD(l.host); rs.IsRiskyTLD(tld) {
			findings = append(findings, finding("risky_tld", w.RiskyTLD, fmt.Sprintf("Risky TLD: .%s", tld)))
		}
		if domainutil.IsIPLiteral(l.host) {
			findings = append(findings, finding("ip_host", w.IPHost, fmt.Sprintf("Link to a raw IP address: %s", l.host)))
		}
		if domainutil.HasUserInfo(l.raw) {
			findings = append(findings, finding("userinfo", w.UserInfo, "URL with embedded userinfo (user@host)"))
		}
		if domainutil.SubdomainDepth(l.host) >= deepSubdomainDepth {
			findings = append(findings, finding("deep_subdomain", w.DeepSubdomain, fmt.Sprintf("Deep subdomain: %s", l.host)))
		}
		if domainutil.PathLooksPhishy(l.raw) {
			findings = append(findings, finding("phishy_path", w.PhishyPath, "Phishing-style path or parameters"))
		}
		if domainutil.IsPunycode(l.host) {
			findings = append(findings, finding("punycode", w.Punycode,
				fmt.Sprintf("Punycode domain: %s (%s)", l.host, domainutil.DecodeIDN(l.host))))
		}
		findings = append(findings, brandLinkFindings(l, m.mentioned, rs)...)
	}
	return findings
}

func ruleLinkScheme(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	for _, l := range m.links {
		findings = append(findings, schemeFindings(l, rs)...)
	}
	return findings
}

func ruleShortener(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	for _, l := range m.links {
		findings = append(findings, shortenerFindings(l, rs)...)
	}
	return findings
}

func schemeFindings(l link, rs *rules.RuleSet) []core.Finding {
	switch l.scheme {
	case "http":
		return []core.Finding{finding("unencrypted", rs.Weights().Unencrypted, "Unencrypted link (http)")}
	case "data":
		return []core.Finding{finding("data_uri", rs.Weights().DataURI, "data: link may hide its content")}
	}
	return nil
}

func shortenerFindings(l link, rs *rules.RuleSet) []core.Finding {
	if !rs.IsShortener(l.host) {
		return nil
	}
	return []core.Finding{finding("shortener", rs.Weights().Shortener, fmt.Sprintf("URL shortener: %s", l.host))}
}

// brandLinkFindings compares the link's base domain with the official domains
// of every brand named in the text.
func brandLinkFindings(l link, mentioned []rules.Brand, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	w := rs.Weights()
	for _, b := range mentioned {
		match, official := similarity.Classify(l.base, b.Official, similarity.DefaultCloseness)
		switch match {
		case similarity.Lookalike:
			findings = append(findings, finding("brand_lookalike", w.BrandLookalike,
				fmt.Sprintf("Look-alike of %q domain: %s (official %s)", b.Name, l.base, official)))
		case similarity.Unrelated:
			findings = append(findings, finding("brand_link_mismatch", w.BrandLinkMismatch,
				fmt.Sprintf("Brand %q mentioned but link points to %s", b.Name, l.base)))
		}
	}
	return findings
}
