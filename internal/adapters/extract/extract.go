// Package extract turns raw RFC 5322 messages into core.EmailData.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// formMarker is appended to the body when the HTML part carries a form, so
// the structure detector sees it after the markup is flattened.
const formMarker = "[form]"

var plainURL = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"')\]]+`)

// Extractor parses MIME messages.
type Extractor struct {
	logger      *zap.Logger
	text        *utils.TextProcessor
	maxBodySize int
}

// NewExtractor creates an extractor. A maxBodySize of zero keeps the whole body.
func NewExtractor(logger *zap.Logger, text *utils.TextProcessor, maxBodySize int) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	return &Extractor{logger: logger, text: text, maxBodySize: maxBodySize}
}

// FromBytes parses raw.
func (x *Extractor) FromBytes(raw []byte) (*core.EmailData, error) {
	return x.FromReader(bytes.NewReader(raw))
}

// FromReader parses a complete message from r.
func (x *Extractor) FromReader(r io.Reader) (*core.EmailData, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	for _, perr := range env.Errors {
		x.logger.Debug("MIME part problem", zap.String("error", perr.Error()))
	}

	email := &core.EmailData{
		Subject:     env.GetHeader("Subject"),
		Links:       []string{},
		Attachments: []string{},
		Anchors:     []core.Anchor{},
	}
	email.Sender, email.SenderName = sender(env)

	body := env.Text
	hasForm := false
	if env.HTML != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(env.HTML))
		if err != nil {
			x.logger.Warn("Failed to parse HTML part", zap.Error(err))
		} else {
			email.Anchors, email.Links = anchors(doc)
			hasForm = doc.Find("form, input").Length() > 0
		}
		if strings.TrimSpace(body) == "" {
			body, err = html2text.FromString(env.HTML, html2text.Options{OmitLinks: true})
			if err != nil {
				x.logger.Warn("Failed to convert HTML part to text", zap.Error(err))
				body = ""
			}
		}
	}

	for _, u := range plainURL.FindAllString(body, -1) {
		email.Links = appendUnique(email.Links, strings.TrimRight(u, ".,;:!?"))
	}

	email.Body = x.text.ProcessText(body, x.maxBodySize)
	if hasForm {
		email.Body += "\n" + formMarker
	}

	for _, p := range env.Attachments {
		if p.FileName != "" {
			email.Attachments = append(email.Attachments, p.FileName)
		}
	}
	for _, p := range env.Inlines {
		if p.FileName != "" && !strings.HasPrefix(p.ContentType, "image/") {
			email.Attachments = append(email.Attachments, p.FileName)
		}
	}
	for _, p := range env.OtherParts {
		if p.FileName != "" {
			email.Attachments = append(email.Attachments, p.FileName)
		}
	}

	x.logger.Debug("Message extracted",
		zap.String("sender", email.Sender),
		zap.Int("links", len(email.Links)),
		zap.Int("anchors", len(email.Anchors)),
		zap.Int("attachments", len(email.Attachments)))
	return email, nil
}

func sender(env *enmime.Envelope) (address, name string) {
	list, err := env.AddressList("From")
	if err == nil && len(list) > 0 {
		return list[0].Address, list[0].Name
	}
	raw := strings.TrimSpace(env.GetHeader("From"))
	if addr, err := mail.ParseAddress(raw); err == nil {
		return addr.Address, addr.Name
	}
	return raw, ""
}

func anchors(doc *goquery.Document) ([]core.Anchor, []string) {
	var out []core.Anchor
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		out = append(out, core.Anchor{Href: href, Text: strings.Join(strings.Fields(s.Text()), " ")})
		links = appendUnique(links, href)
	})
	if out == nil {
		out = []core.Anchor{}
	}
	if links == nil {
		links = []string{}
	}
	return out, links
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
