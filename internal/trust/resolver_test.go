package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/whitelist"
)

func TestResolve(t *testing.T) {
	base := whitelist.NewBase([]string{"ceo@corp.example"}, []string{"github.com"}, nil)

	tests := []struct {
		name   string
		sender string
		lists  core.TrustLists
		want   core.TrustDecision
	}{
		{"empty sender", "", nil, core.Untrusted()},
		{"global email", "CEO@corp.example", nil,
			core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelEmail}},
		{"global domain", "noreply@github.com", nil,
			core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelDomain}},
		{"whitelisted email", "friend@mail.example", core.TrustLists{core.KeyWhitelistEmails: {"friend@mail.example"}},
			core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelEmail}},
		{"whitelisted domain", "x@partner.example", core.TrustLists{core.KeyWhitelistDomains: {"partner.example"}},
			core.TrustDecision{Trusted: true, Source: core.SourceTrustedList, Level: core.LevelDomain}},
		{"ignored", "news@shop.example", core.TrustLists{core.KeyIgnoredSenders: {"news@shop.example"}},
			core.TrustDecision{Trusted: true, Source: core.SourceIgnoredList, Level: core.LevelUser}},
		{"unknown", "a@evil.tk", core.TrustLists{core.KeyIgnoredSenders: {"b@evil.tk"}}, core.Untrusted()},
		{"no domain", "localonly", core.TrustLists{core.KeyWhitelistDomains: {""}}, core.Untrusted()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.sender, base, tt.lists))
		})
	}
}

func TestResolve_EmailBeatsOtherLists(t *testing.T) {
	lists := core.TrustLists{
		core.KeyWhitelistEmails:  {"a@b.example"},
		core.KeyWhitelistDomains: {"b.example"},
		core.KeyIgnoredSenders:   {"a@b.example"},
	}

	got := Resolve("a@b.example", nil, lists)
	assert.True(t, got.Trusted)
	assert.Equal(t, core.LevelEmail, got.Level)

	// the domain entry does not change the outcome either way
	got = Resolve("a@b.example", nil, core.TrustLists{core.KeyWhitelistEmails: {"a@b.example"}})
	assert.Equal(t, core.LevelEmail, got.Level)
}

func TestResolve_DomainBeatsIgnored(t *testing.T) {
	lists := core.TrustLists{
		core.KeyWhitelistDomains: {"b.example"},
		core.KeyIgnoredSenders:   {"a@b.example"},
	}
	got := Resolve("a@b.example", nil, lists)
	assert.Equal(t, core.SourceTrustedList, got.Source)
	assert.Equal(t, core.LevelDomain, got.Level)
}
