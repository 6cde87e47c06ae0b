package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Anchor is a hyperlink as rendered to the reader: visible text and target.
type Anchor struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// EmailData is the input snapshot for one analysis. Missing fields are empty.
type EmailData struct {
	Subject     string   `json:"subject"`
	Sender      string   `json:"sender"`
	SenderName  string   `json:"senderName"`
	Body        string   `json:"body"`
	Links       []string `json:"links"`
	Attachments []string `json:"attachments"`
	Anchors     []Anchor `json:"anchors"`
}

// Sanitized returns a copy with surrounding whitespace trimmed, the sender
// lowercased, blank list entries dropped and nil slices replaced by empty ones.
// The receiver is not modified.
func (e EmailData) Sanitized() EmailData {
	out := EmailData{
		Subject:     strings.TrimSpace(e.Subject),
		Sender:      strings.ToLower(strings.TrimSpace(e.Sender)),
		SenderName:  strings.TrimSpace(e.SenderName),
		Body:        e.Body,
		Links:       compact(e.Links),
		Attachments: compact(e.Attachments),
		Anchors:     make([]Anchor, 0, len(e.Anchors)),
	}
	for _, a := range e.Anchors {
		href := strings.TrimSpace(a.Href)
		if href == "" {
			continue
		}
		out.Anchors = append(out.Anchors, Anchor{Href: href, Text: strings.TrimSpace(a.Text)})
	}
	return out
}

// IsContentless reports whether there is nothing to score.
func (e EmailData) IsContentless() bool {
	return strings.TrimSpace(e.Subject) == "" &&
		strings.TrimSpace(e.Body) == "" &&
		len(compact(e.Links)) == 0 &&
		len(compact(e.Attachments)) == 0 &&
		len(e.Anchors) == 0
}

// Fingerprint is a stable digest of every field, used as a result cache key.
func (e EmailData) Fingerprint() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(e.Subject)
	write(e.Sender)
	write(e.SenderName)
	write(e.Body)
	for _, l := range e.Links {
		write("l:" + l)
	}
	for _, a := range e.Attachments {
		write("a:" + a)
	}
	for _, a := range e.Anchors {
		write("h:" + a.Href)
		write("t:" + a.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey identifies a verdict for email scored in mode.
func CacheKey(e EmailData, mode Mode) string {
	return e.Fingerprint() + ":" + string(mode)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Finding is one scored observation produced by a detector.
type Finding struct {
	Score  float64
	Reason string
	Rule   string
}

// AnalysisResult is the explainable outcome of scoring one email.
type AnalysisResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Mode selects which detectors ran.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeLight Mode = "light"
)

// TrustSource says which list produced a trust decision.
type TrustSource string

const (
	SourceNone        TrustSource = "none"
	SourceTrustedList TrustSource = "trustedList"
	SourceIgnoredList TrustSource = "ignoredList"
)

// TrustLevel says how specific the matching entry was.
type TrustLevel string

const (
	LevelNone   TrustLevel = "none"
	LevelEmail  TrustLevel = "email"
	LevelDomain TrustLevel = "domain"
	LevelUser   TrustLevel = "user"
)

// TrustDecision is the outcome of checking a sender against the trust lists.
type TrustDecision struct {
	Trusted bool        `json:"trusted"`
	Source  TrustSource `json:"source"`
	Level   TrustLevel  `json:"level"`
}

// Untrusted is the conservative decision.
func Untrusted() TrustDecision {
	return TrustDecision{Trusted: false, Source: SourceNone, Level: LevelNone}
}

// ListKey names one user-maintained trust list.
type ListKey string

const (
	KeyWhitelistEmails  ListKey = "whitelistEmails"
	KeyWhitelistDomains ListKey = "whitelistDomains"
	KeyIgnoredSenders   ListKey = "ignoredSenders"
)

// AllListKeys lists every user-maintained list in a fixed order.
var AllListKeys = []ListKey{KeyWhitelistEmails, KeyWhitelistDomains, KeyIgnoredSenders}

// TrustLists is a partial view of the trust store keyed by list name.
type TrustLists map[ListKey][]string

// Verdict wraps an analysis with the context it was produced in.
type Verdict struct {
	Result       AnalysisResult  `json:"result"`
	Mode         Mode            `json:"mode"`
	Trust        TrustDecision   `json:"trust"`
	Threshold    int             `json:"threshold"`
	Flagged      bool            `json:"flagged"`
	Degraded     bool            `json:"degraded"`
	RulesSource  string          `json:"rulesSource"`
	ProcessingID string          `json:"processingId"`
	AnalyzedAt   time.Time       `json:"analyzedAt"`
	Cached       bool            `json:"cached"`
	DeepScan     *DeepScanReport `json:"deepScan,omitempty"`
}

// DeepScanReport is the opaque second opinion of a remote scanner.
type DeepScanReport struct {
	Provider     string    `json:"provider"`
	Malicious    bool      `json:"malicious"`
	Score        int       `json:"score"`
	Confidence   float64   `json:"confidence"`
	Explanation  string    `json:"explanation"`
	ProcessingID string    `json:"processingId"`
	ScannedAt    time.Time `json:"scannedAt"`
}
