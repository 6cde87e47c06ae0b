// Package rules holds the declarative rule set shared by every detector.
//
// A RuleSet is immutable once built. Reloading produces a new RuleSet which
// is published through a Holder by pointer swap.
package rules

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/mikey/phishguard/internal/domainutil"
	"github.com/mikey/phishguard/internal/utils"
)

// Pattern names understood by the detectors.
const (
	PatternCTA        = "cta"
	PatternPressure   = "pressure"
	PatternCredential = "credential"
	PatternBilling    = "billing"
)

// Weights are the score deltas attached to each finding kind.
type Weights struct {
	Keyword                float64 `mapstructure:"keyword"`
	CTA                    float64 `mapstructure:"cta"`
	Pressure               float64 `mapstructure:"pressure"`
	Credential             float64 `mapstructure:"credential"`
	Billing                float64 `mapstructure:"billing"`
	Exclamations           float64 `mapstructure:"exclamations"`
	CapsSubject            float64 `mapstructure:"caps_subject"`
	Confusable             float64 `mapstructure:"confusable"`
	Shortener              float64 `mapstructure:"shortener"`
	RiskyTLD               float64 `mapstructure:"risky_tld"`
	IPHost                 float64 `mapstructure:"ip_host"`
	Unencrypted            float64 `mapstructure:"unencrypted"`
	DataURI                float64 `mapstructure:"data_uri"`
	UserInfo               float64 `mapstructure:"userinfo"`
	DeepSubdomain          float64 `mapstructure:"deep_subdomain"`
	PhishyPath             float64 `mapstructure:"phishy_path"`
	Punycode               float64 `mapstructure:"punycode"`
	UnparsableLink         float64 `mapstructure:"unparsable_link"`
	BrandLinkMismatch      float64 `mapstructure:"brand_link_mismatch"`
	BrandLookalike         float64 `mapstructure:"brand_lookalike"`
	AnchorMismatch         float64 `mapstructure:"anchor_mismatch"`
	CTAAnchor              float64 `mapstructure:"cta_anchor"`
	DangerousAttachment    float64 `mapstructure:"dangerous_attachment"`
	DoubleExtension        float64 `mapstructure:"double_extension"`
	ArchiveWithCredentials float64 `mapstructure:"archive_with_credentials"`
	SenderUnparsable       float64 `mapstructure:"sender_unparsable"`
	SenderIncoherent       float64 `mapstructure:"sender_incoherent"`
	SenderRiskyTLD         float64 `mapstructure:"sender_risky_tld"`
	SenderBrandMismatch    float64 `mapstructure:"sender_brand_mismatch"`
	Form                   float64 `mapstructure:"form"`
	LowContent             float64 `mapstructure:"low_content"`
	Attenuation            float64 `mapstructure:"attenuation"`
}

// DefaultWeights returns the built-in weight table.
func DefaultWeights() Weights {
	return Weights{
		Keyword:                5.5,
		CTA:                    4,
		Pressure:               8,
		Credential:             10,
		Billing:                4,
		Exclamations:           4,
		CapsSubject:            4,
		Confusable:             6,
		Shortener:              10,
		RiskyTLD:               6,
		IPHost:                 10,
		Unencrypted:            5,
		DataURI:                10,
		UserInfo:               8,
		DeepSubdomain:          4,
		PhishyPath:             6,
		Punycode:               6,
		UnparsableLink:         4,
		BrandLinkMismatch:      10,
		BrandLookalike:         12,
		AnchorMismatch:         10,
		CTAAnchor:              4,
		DangerousAttachment:    20,
		DoubleExtension:        15,
		ArchiveWithCredentials: 6,
		SenderUnparsable:       5,
		SenderIncoherent:       4,
		SenderRiskyTLD:         8,
		SenderBrandMismatch:    10,
		Form:                   8,
		LowContent:             6,
		Attenuation:            8,
	}
}

// Brand maps a brand name, as it appears in normalized text, to the base
// domains it legitimately sends from.
type Brand struct {
	Name     string
	Official []string
}

// RuleSet is the compiled, read-only form of a rule document.
type RuleSet struct {
	keywords   []string
	patterns   map[string]*regexp.Regexp
	shorteners map[string]struct{}
	riskyTLDs  map[string]struct{}
	dangerous  map[string]struct{}
	archives   map[string]struct{}
	brands     []Brand
	trusted    map[string]struct{}
	weights    Weights
	source     string
}

// Keywords returns the normalized risky keywords in load order.
func (r *RuleSet) Keywords() []string { return r.keywords }

// Pattern returns the compiled pattern registered under name, or nil.
func (r *RuleSet) Pattern(name string) *regexp.Regexp { return r.patterns[name] }

// Matches reports whether the named pattern exists and matches text.
func (r *RuleSet) Matches(name, text string) bool {
	re := r.patterns[name]
	return re != nil && re.MatchString(text)
}

// PatternNames returns the registered pattern names, sorted.
func (r *RuleSet) PatternNames() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsShortener reports whether host is a known URL shortener.
func (r *RuleSet) IsShortener(host string) bool { return has(r.shorteners, host) }

// IsRiskyTLD reports whether tld is on the risky list.
func (r *RuleSet) IsRiskyTLD(tld string) bool { return has(r.riskyTLDs, tld) }

// IsDangerousExtension reports whether ext (without dot) is dangerous.
func (r *RuleSet) IsDangerousExtension(ext string) bool { return has(r.dangerous, ext) }

// IsArchiveExtension reports whether ext (without dot) is an archive format.
func (r *RuleSet) IsArchiveExtension(ext string) bool { return has(r.archives, ext) }

// IsTrusted reports whether the base domain is on the trusted list.
func (r *RuleSet) IsTrusted(baseDomain string) bool { return has(r.trusted, baseDomain) }

// Brands returns brands sorted by name.
func (r *RuleSet) Brands() []Brand { return r.brands }

// Weights returns the weight table.
func (r *RuleSet) Weights() Weights { return r.weights }

// Source describes where the rule set came from.
func (r *RuleSet) Source() string { return r.source }

// Stats summarizes the rule set size for logging.
func (r *RuleSet) Stats() map[string]int {
	return map[string]int{
		"keywords":   len(r.keywords),
		"patterns":   len(r.patterns),
		"shorteners": len(r.shorteners),
		"risky_tlds": len(r.riskyTLDs),
		"dangerous":  len(r.dangerous),
		"archives":   len(r.archives),
		"brands":     len(r.brands),
		"trusted":    len(r.trusted),
	}
}

// Empty returns a rule set with no keywords, patterns or lists. Detectors
// still run against it but only structural checks can fire.
func Empty() *RuleSet {
	rs, _ := Build(Document{Weights: DefaultWeights()}, "empty")
	return rs
}

// Build compiles a document into a RuleSet. Keywords are normalized and
// de-duplicated, list entries are lowercased, brand domains are reduced to
// their base domain. An uncompilable pattern fails the whole build.
func Build(doc Document, source string) (*RuleSet, error) {
	rs := &RuleSet{
		patterns:   make(map[string]*regexp.Regexp, len(doc.RegexPatterns)),
		shorteners: toSet(doc.URLs.Shorteners, nil),
		riskyTLDs:  toSet(doc.URLs.RiskyTLD, func(s string) string { return strings.TrimPrefix(s, ".") }),
		dangerous:  toSet(doc.Attachments.Dangerous, func(s string) string { return strings.TrimPrefix(s, ".") }),
		archives:   toSet(doc.Attachments.Archives, func(s string) string { return strings.TrimPrefix(s, ".") }),
		trusted:    toSet(doc.Trusted, domainutil.BaseDomain),
		weights:    doc.Weights,
		source:     source,
	}

	seen := make(map[string]struct{}, len(doc.Keywords.Risky))
	for _, k := range doc.Keywords.Risky {
		n := strings.TrimSpace(utils.Normalize(k))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		rs.keywords = append(rs.keywords, n)
	}

	for name, src := range doc.RegexPatterns {
		re, err := regexp.Compile(utils.StripMarks(src))
		if err != nil {
			return nil, &PatternError{Name: name, Err: err}
		}
		rs.patterns[strings.ToLower(name)] = re
	}

	names := make([]string, 0, len(doc.Brands))
	for name := range doc.Brands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := strings.TrimSpace(utils.Normalize(name))
		if n == "" {
			continue
		}
		official := make([]string, 0, len(doc.Brands[name]))
		for _, d := range doc.Brands[name] {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			if base := domainutil.BaseDomain(d); !slices.Contains(official, base) {
				official = append(official, base)
			}
		}
		rs.brands = append(rs.brands, Brand{Name: n, Official: official})
	}

	return rs, nil
}

func has(set map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

func toSet(items []string, transform func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if transform != nil {
			item = transform(item)
		}
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}
