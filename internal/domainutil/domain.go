// Package domainutil parses hosts out of links and reduces them to the
// registrable portion used for trust and impersonation checks.
package domainutil

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

// sldExceptions are multi-label public suffixes for which the base domain
// keeps three labels instead of two.
var sldExceptions = map[string]struct{}{
	"co.uk":  {},
	"ac.uk":  {},
	"gov.uk": {},
	"com.au": {},
	"com.br": {},
	"com.mx": {},
}

var (
	dottedQuad   = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	phishyTokens = regexp.MustCompile(`(login|signin|connect|verify|update|password|reset|secure|confirm)`)
	base64Run    = regexp.MustCompile(`[A-Za-z0-9+/]{24,}={0,2}`)
)

// Hostname returns the lowercased host of rawURL without port, or "" when the
// link cannot be parsed or carries no host. An empty result means "unknown".
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// Scheme returns the lowercased scheme of rawURL, or "" when unparsable.
func Scheme(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	idx := strings.Index(trimmed, ":")
	if idx <= 0 {
		return ""
	}
	scheme := strings.ToLower(trimmed[:idx])
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '+' && r != '-' && r != '.' {
			return ""
		}
	}
	return scheme
}

// BaseDomain returns the last two labels of host, or three when the last two
// form a known multi-label suffix such as "co.uk". A single-label host is
// returned unchanged.
func BaseDomain(host string) string {
	parts := labels(host)
	if len(parts) < 2 {
		return host
	}
	lastTwo := strings.Join(parts[len(parts)-2:], ".")
	if _, ok := sldExceptions[lastTwo]; ok && len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return lastTwo
}

// TLD returns the last label of host.
func TLD(host string) string {
	parts := labels(host)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// IsIPLiteral reports whether host is a dotted-quad or colon-hex address.
func IsIPLiteral(host string) bool {
	h := strings.Trim(host, "[]")
	if h == "" {
		return false
	}
	if dottedQuad.MatchString(h) {
		return true
	}
	return strings.Contains(h, ":") && net.ParseIP(h) != nil
}

// SubdomainDepth is the label count minus two, floored at zero.
func SubdomainDepth(host string) int {
	depth := len(labels(host)) - 2
	if depth < 0 {
		return 0
	}
	return depth
}

// HasUserInfo reports whether rawURL embeds credentials before the host.
func HasUserInfo(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.User == nil {
		return false
	}
	password, _ := u.User.Password()
	return u.User.Username() != "" || password != ""
}

// PathLooksPhishy reports whether the path or query of rawURL carries
// login-related tokens or a long base64-like run.
func PathLooksPhishy(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	p := strings.ToLower(u.EscapedPath() + " " + u.RawQuery)
	if phishyTokens.MatchString(p) {
		return true
	}
	return base64Run.MatchString(p)
}

// IsPunycode reports whether any label of host is an IDNA A-label.
func IsPunycode(host string) bool {
	for _, label := range labels(host) {
		if strings.HasPrefix(label, "xn--") {
			return true
		}
	}
	return false
}

// DecodeIDN returns the Unicode form of a punycode host. Hosts that fail to
// decode are returned unchanged.
func DecodeIDN(host string) string {
	decoded, err := idna.ToUnicode(host)
	if err != nil {
		return host
	}
	return decoded
}

// HasConfusableScript reports whether s contains Cyrillic or Greek letters,
// the usual source of Latin look-alike homoglyphs.
func HasConfusableScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r) {
			return true
		}
	}
	return false
}

// SplitAddress splits an email address into local part and lowercased domain.
// A missing "@" yields an empty domain.
func SplitAddress(address string) (local, domain string) {
	addr := strings.ToLower(strings.TrimSpace(address))
	local, domain, _ = strings.Cut(addr, "@")
	return local, domain
}

func labels(host string) []string {
	return strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
}
