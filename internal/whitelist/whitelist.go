package whitelist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Base is the global trusted-sender base shipped with the deployment. It is
// read-only; user edits live in the trust store.
type Base struct {
	emails  map[string]struct{}
	domains map[string]struct{}
	logger  *zap.Logger
}

// fileFormat mirrors trusted_senders files: a flat email list and domains
// grouped by category.
type fileFormat struct {
	Emails  []string            `mapstructure:"emails"`
	Domains map[string][]string `mapstructure:"domains"`
}

// NewBase creates a base from explicit emails and domains
func NewBase(emails, domains []string, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Base{
		emails:  normalize(emails),
		domains: normalize(domains),
		logger:  logger,
	}

	if b.Size() > 0 {
		logger.Info("Initialized global trusted senders",
			zap.Int("emails", len(b.emails)),
			zap.Int("domains", len(b.domains)))
	}
	return b
}

// Load reads a trusted senders file (JSON or YAML) and merges the extra
// emails and domains given by configuration.
func Load(path string, extraEmails, extraDomains []string, logger *zap.Logger) (*Base, error) {
	if path == "" {
		return NewBase(extraEmails, extraDomains, logger), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read trusted senders file %s: %w", path, err)
	}

	var f fileFormat
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to decode trusted senders file %s: %w", path, err)
	}

	emails := append(append([]string{}, f.Emails...), extraEmails...)
	domains := append([]string{}, extraDomains...)
	for _, group := range f.Domains {
		domains = append(domains, group...)
	}
	return NewBase(emails, domains, logger), nil
}

// HasEmail reports whether email is globally trusted
func (b *Base) HasEmail(email string) bool {
	if b == nil {
		return false
	}
	_, ok := b.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// HasDomain reports whether domain is globally trusted
func (b *Base) HasDomain(domain string) bool {
	if b == nil {
		return false
	}
	_, ok := b.domains[strings.ToLower(strings.TrimSpace(domain))]
	if ok {
		b.logger.Debug("Domain is globally trusted", zap.String("domain", domain))
	}
	return ok
}

// Emails returns the trusted emails, sorted
func (b *Base) Emails() []string {
	if b == nil {
		return nil
	}
	return sorted(b.emails)
}

// Domains returns the trusted domains, sorted
func (b *Base) Domains() []string {
	if b == nil {
		return nil
	}
	return sorted(b.domains)
}

// Size is the total number of entries
func (b *Base) Size() int {
	if b == nil {
		return 0
	}
	return len(b.emails) + len(b.domains)
}

func normalize(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if s := strings.ToLower(strings.TrimSpace(item)); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
