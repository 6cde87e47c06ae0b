package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	rs := Default()

	assert.Equal(t, "builtin", rs.Source())
	assert.Contains(t, rs.Keywords(), "compte bloque")
	assert.Contains(t, rs.Keywords(), "mot de passe")
	assert.True(t, rs.IsShortener("bit.ly"))
	assert.True(t, rs.IsRiskyTLD("tk"))
	assert.True(t, rs.IsDangerousExtension("exe"))
	assert.True(t, rs.IsArchiveExtension("zip"))
	assert.True(t, rs.IsTrusted("paypal.com"))
	assert.False(t, rs.IsTrusted(""))
	assert.Equal(t, DefaultWeights(), rs.Weights())
	assert.ElementsMatch(t, []string{PatternBilling, PatternCredential, PatternCTA, PatternPressure}, rs.PatternNames())
}

func TestDefault_KeywordsNormalizedAndDeduplicated(t *testing.T) {
	rs := Default()

	seen := map[string]bool{}
	for _, k := range rs.Keywords() {
		assert.False(t, seen[k], "duplicate keyword %q", k)
		seen[k] = true
		assert.Equal(t, strings.ToLower(k), k)
	}
	// "immédiatement" and "immediatement" collapse into one entry
	assert.True(t, seen["immediatement"])
	assert.False(t, seen["immédiatement"])
}

func TestDefault_PatternsMatchNormalizedText(t *testing.T) {
	rs := Default()

	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{PatternPressure, "urgent verifiez votre mot de passe", true},
		{PatternPressure, "repondez sans delai", true},
		{PatternPressure, "derniere chance", true},
		{PatternPressure, "dans 24h", true},
		{PatternPressure, "a bientot", false},
		{PatternCredential, "votre mot de passe", true},
		{PatternCredential, "code de verification", true},
		{PatternCredential, "bonjour", false},
		{PatternBilling, "votre facture", true},
		{PatternBilling, "describe", false},
		{PatternCTA, "cliquez ici", true},
		{PatternCTA, "Click here", true},
		{PatternCTA, "nothing", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, rs.Matches(tt.pattern, tt.text))
		})
	}
}

func TestDefault_BrandsSortedWithBaseDomains(t *testing.T) {
	brands := Default().Brands()
	require.NotEmpty(t, brands)

	for i := 1; i < len(brands); i++ {
		assert.Less(t, brands[i-1].Name, brands[i].Name)
	}
	for _, b := range brands {
		if b.Name == "google" {
			// accounts.google.com reduces to google.com
			assert.Equal(t, []string{"google.com"}, b.Official)
		}
	}
}

func TestEmpty(t *testing.T) {
	rs := Empty()

	assert.Empty(t, rs.Keywords())
	assert.Empty(t, rs.PatternNames())
	assert.Empty(t, rs.Brands())
	assert.False(t, rs.IsShortener("bit.ly"))
	assert.False(t, rs.Matches(PatternCTA, "click here"))
	assert.Nil(t, rs.Pattern(PatternCTA))
	assert.Equal(t, DefaultWeights(), rs.Weights())
}

func TestParse_YAML(t *testing.T) {
	doc := `
keywords:
  risky: ["Sécurité", "securite", "Wire Transfer"]
regexPatterns:
  credential: '(?i)\bpasscode\b'
urls:
  shorteners: [Short.Example]
  riskyTLD: [.zip]
attachments:
  dangerous: [EXE]
brands:
  Acme: [login.acme.com, acme.co.uk]
trusted: [www.acme.com]
weights:
  keyword: 2
  dangerous_attachment: 30
`
	rs, err := Parse(strings.NewReader(doc), "yaml", "test")
	require.NoError(t, err)

	assert.Equal(t, []string{"securite", "wire transfer"}, rs.Keywords())
	assert.True(t, rs.Matches(PatternCredential, "your PASSCODE"))
	assert.False(t, rs.Matches(PatternPressure, "urgent"))
	assert.True(t, rs.IsShortener("short.example"))
	assert.True(t, rs.IsRiskyTLD("zip"))
	assert.True(t, rs.IsDangerousExtension("exe"))
	assert.True(t, rs.IsTrusted("acme.com"))
	require.Len(t, rs.Brands(), 1)
	assert.Equal(t, "acme", rs.Brands()[0].Name)
	assert.Equal(t, []string{"acme.com", "acme.co.uk"}, rs.Brands()[0].Official)

	w := rs.Weights()
	assert.Equal(t, 2.0, w.Keyword)
	assert.Equal(t, 30.0, w.DangerousAttachment)
	assert.Equal(t, DefaultWeights().Shortener, w.Shortener, "unset weights keep built-in values")
}

func TestParse_JSON(t *testing.T) {
	doc := `{"keywords":{"risky":["verify"]},"trusted":["example.com"]}`
	rs, err := Parse(strings.NewReader(doc), "json", "test")
	require.NoError(t, err)

	assert.Equal(t, []string{"verify"}, rs.Keywords())
	assert.True(t, rs.IsTrusted("example.com"))
	assert.Empty(t, rs.PatternNames(), "missing sections fall back to empty sets")
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		format string
		doc    string
	}{
		{"bad yaml", "yaml", "keywords: [unterminated"},
		{"bad json", "json", `{"keywords":`},
		{"wrong shape", "yaml", "keywords: 5"},
		{"bad regex", "yaml", "regexPatterns:\n  cta: '(unclosed'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse(strings.NewReader(tt.doc), tt.format, "test")
			assert.Error(t, err)
			assert.Nil(t, rs)
		})
	}
}

func TestParse_PatternErrorUnwraps(t *testing.T) {
	_, err := Parse(strings.NewReader("regexPatterns:\n  billing: '[z-a]'"), "yaml", "test")
	require.Error(t, err)

	var pe *PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "billing", pe.Name)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trusted: [example.org]\n"), 0o600))

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, rs.Source())
	assert.True(t, rs.IsTrusted("example.org"))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
