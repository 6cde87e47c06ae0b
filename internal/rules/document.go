package rules

import (
	"fmt"
)

// Document is the on-disk shape of a rule file (YAML or JSON).
type Document struct {
	Keywords struct {
		Risky []string `mapstructure:"risky"`
	} `mapstructure:"keywords"`
	RegexPatterns map[string]string `mapstructure:"regexpatterns"`
	URLs          struct {
		Shorteners []string `mapstructure:"shorteners"`
		RiskyTLD   []string `mapstructure:"riskytld"`
	} `mapstructure:"urls"`
	Attachments struct {
		Dangerous []string `mapstructure:"dangerous"`
		Archives  []string `mapstructure:"archives"`
	} `mapstructure:"attachments"`
	Brands  map[string][]string `mapstructure:"brands"`
	Trusted []string            `mapstructure:"trusted"`
	Weights Weights             `mapstructure:"weights"`
}

// PatternError reports a regex pattern that failed to compile.
type PatternError struct {
	Name string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Name, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// DefaultDocument returns the built-in French and English dictionaries.
func DefaultDocument() Document {
	var doc Document
	doc.Keywords.Risky = []string{
		"urgent", "urgence", "immédiatement", "immediatement", "immédiat", "immediat",
		"compte bloqué", "compte suspendu", "vérifiez", "verifiez", "confidentiel",
		"mot de passe", "paiement", "facture", "remboursement", "mise à jour", "mise a jour",
		"sécurité", "securite", "cliquer ici", "cliquez", "valider", "confirmer", "identité",
		"dernière chance", "dernier avertissement", "sans délai",
		"immediately", "account locked", "verify", "password", "payment", "invoice",
		"refund", "update", "security", "click here", "confirm", "identity", "last warning",
	}
	doc.RegexPatterns = map[string]string{
		PatternCTA:        `(?i)\b(ici|here|cliquez(?:\s+ici)?|click(?:\s+here)?|open link)\b`,
		PatternPressure:   `(?i)\b(urgent|urgence|24\s*h|48\s*h|72\s*h|dans\s+\d{1,2}\s*(heures?|jours?)|dernier(?:\s+avertissement|e chance)|immédiatement|sans délai|asap)\b`,
		PatternCredential: `(?i)\b(mot\s*de\s*passe|password|identifiants?|credentials?|code\s*de\s*vérification|otp|2fa|authenticator)\b`,
		PatternBilling:    `(?i)\b(facture|invoice|paiement|payment|remboursement|refund|virement|wire|iban|rib)\b`,
	}
	doc.URLs.Shorteners = []string{
		"bit.ly", "tinyurl.com", "t.co", "is.gd", "cutt.ly", "rebrand.ly", "rb.gy", "lnkd.in",
		"goo.gl", "ow.ly", "s.id", "shrtco.de", "linktr.ee",
	}
	doc.URLs.RiskyTLD = []string{"zip", "mov", "xyz", "top", "gq", "tk", "ml", "ga", "cf", "click", "work", "shop"}
	doc.Attachments.Dangerous = []string{
		"exe", "js", "vbs", "scr", "bat", "cmd", "ps1", "apk", "jar", "hta", "html", "htm",
		"lnk", "iso", "img", "dll", "com", "pif", "wsf", "svg", "ace", "rar", "7z", "zip", "docm", "xlsm", "pptm",
	}
	doc.Attachments.Archives = []string{"zip", "rar", "7z"}
	doc.Brands = map[string][]string{
		"paypal":           {"paypal.com"},
		"google":           {"google.com", "accounts.google.com"},
		"microsoft":        {"microsoft.com", "live.com", "outlook.com"},
		"apple":            {"apple.com", "icloud.com"},
		"amazon":           {"amazon.fr", "amazon.com"},
		"netflix":          {"netflix.com"},
		"laposte":          {"laposte.fr", "laposte.net"},
		"sfr":              {"sfr.fr"},
		"orange":           {"orange.fr"},
		"societe generale": {"societegenerale.fr", "sg.fr"},
		"banque populaire": {"banque-populaire.fr", "bpce.fr"},
	}
	doc.Trusted = []string{
		"google.com", "accounts.google.com", "microsoft.com", "apple.com", "icloud.com",
		"amazon.fr", "amazon.com", "github.com", "gitlab.com", "stripe.com", "paypal.com",
	}
	doc.Weights = DefaultWeights()
	return doc
}

// Default returns the built-in rule set.
func Default() *RuleSet {
	rs, err := Build(DefaultDocument(), "builtin")
	if err != nil {
		panic(fmt.Sprintf("builtin rules: %v", err))
	}
	return rs
}
