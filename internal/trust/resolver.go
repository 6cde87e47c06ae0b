// Package trust decides whether a sender is trusted and maintains the
// user-editable trust lists.
package trust

import (
	"slices"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/whitelist"
)

// Resolve classifies sender against the global base and the user lists.
// Checks run in a fixed order and the first match wins: exact email, then
// domain, then the ignored list.
func Resolve(sender string, base *whitelist.Base, lists core.TrustLists) core.TrustDecision {
	email := strings.ToLower(strings.TrimSpace(sender))
	if email == "" {
		return core.Untrusted()
	}
	_, domain := domainutil.SplitAddress(email)

	if base.HasEmail(email) || listHas(lists[core.KeyWhitelistEmails], email) {
		return core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelEmail}
	}

	if domain != "" && (base.HasDomain(domain) || listHas(lists[core.KeyWhitelistDomains], domain)) {
		return core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelDomain}
	}

	if listHas(lists[core.KeyIgnoredSenders], email) {
		return core.TrustDecision{Trusted: true, Source: core.SourceIgnoredList, Level: core.LevelUser}
	}

	return core.Untrusted()
}

func listHas(list []string, value string) bool {
	return slices.ContainsFunc(list, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), value)
	})
}
