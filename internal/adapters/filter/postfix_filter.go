package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/extract"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
)

const (
	analysisTimeout = 10 * time.Second
	maxReasonsBytes = 900
)

// PostfixFilter implements a Postfix content filter. Mail arriving over SMTP
// is scored, annotated with X-Phish headers and re-injected into Postfix.
type PostfixFilter struct {
	analyzer  ports.EmailAnalyzer
	extractor *extract.Extractor
	logger    *zap.Logger
	cfg       config.ServerConfig
	server    *smtp.Server
	relay     func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	analyzer ports.EmailAnalyzer,
	extractor *extract.Extractor,
	logger *zap.Logger,
	cfg config.ServerConfig,
) *PostfixFilter {
	if cfg.ModifySubject && cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "[PHISHING?] "
	}

	f := &PostfixFilter{
		analyzer:  analyzer,
		extractor: extractor,
		logger:    logger,
		cfg:       cfg,
	}
	f.relay = f.sendToPostfix
	return f
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("Postfix filter starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an already extracted email
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.Verdict, error) {
	if email == nil {
		return nil, fmt.Errorf("email is nil")
	}
	return f.analyzer.Analyze(ctx, *email)
}

// handleMessage scores one raw message and returns the bytes to relay.
// A flagged message is rejected with a 550 when blocking is enabled.
func (f *PostfixFilter) handleMessage(ctx context.Context, envelopeFrom string, raw []byte) ([]byte, error) {
	email, err := f.extractor.FromBytes(raw)
	if err != nil {
		f.logger.Warn("Failed to parse message, relaying unchanged",
			zap.String("from", envelopeFrom),
			zap.Error(err))
		return raw, nil
	}
	if email.Sender == "" {
		email.Sender = envelopeFrom
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	verdict, err := f.analyzer.Analyze(ctx, *email)
	if err != nil {
		// Mail keeps flowing when analysis fails; it just goes out unannotated.
		f.logger.Error("Failed to analyze email",
			zap.String("from", email.Sender),
			zap.Error(err))
		return raw, nil
	}

	if verdict.Flagged && f.cfg.BlockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("from", email.Sender),
			zap.Int("score", verdict.Result.Score),
			zap.Strings("reasons", verdict.Result.Reasons))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %d)", verdict.Result.Score),
		}
	}

	f.logger.Info("Email analyzed",
		zap.String("from", email.Sender),
		zap.Int("score", verdict.Result.Score),
		zap.Bool("flagged", verdict.Flagged),
		zap.String("mode", string(verdict.Mode)))

	return f.annotate(raw, verdict), nil
}

// annotate prepends the verdict headers, drops any X-Phish headers the
// sender supplied and prefixes the subject of flagged mail.
func (f *PostfixFilter) annotate(raw []byte, v *core.Verdict) []byte {
	header, _, body := splitMessage(raw)
	own := map[string]bool{}
	for _, name := range []string{f.cfg.Headers.Status, f.cfg.Headers.Score, f.cfg.Headers.Reasons, f.cfg.Headers.Trust} {
		if name != "" {
			own[strings.ToLower(name)] = true
		}
	}

	var out bytes.Buffer
	writeHeader := func(name, value string) {
		if name != "" {
			fmt.Fprintf(&out, "%s: %s\r\n", name, value)
		}
	}
	writeHeader(f.cfg.Headers.Status, strconv.FormatBool(v.Flagged))
	writeHeader(f.cfg.Headers.Score, strconv.Itoa(v.Result.Score))
	if len(v.Result.Reasons) > 0 {
		writeHeader(f.cfg.Headers.Reasons, encodeHeaderValue(singleLine(strings.Join(v.Result.Reasons, "; "), maxReasonsBytes)))
	}
	writeHeader(f.cfg.Headers.Trust, fmt.Sprintf("%s; source=%s; mode=%s", v.Trust.Level, v.Trust.Source, v.Mode))

	prefixSubject := v.Flagged && f.cfg.ModifySubject && f.cfg.SubjectPrefix != ""
	for _, field := range headerFields(header) {
		name := strings.ToLower(fieldName(field))
		if own[name] {
			continue
		}
		if name == "subject" && prefixSubject {
			out.WriteString(f.prefixedSubject(fieldValue(field)))
			prefixSubject = false
			continue
		}
		out.WriteString(field)
	}
	if prefixSubject {
		out.WriteString(f.prefixedSubject(""))
	}

	out.WriteString("\r\n")
	out.Write(body)
	return out.Bytes()
}

func (f *PostfixFilter) prefixedSubject(original string) string {
	decoded, err := decodeEncodedHeader(original)
	if err != nil {
		decoded = original
	}
	if strings.HasPrefix(decoded, f.cfg.SubjectPrefix) {
		return "Subject: " + original + "\r\n"
	}
	return "Subject: " + encodeHeaderValue(f.cfg.SubjectPrefix+decoded) + "\r\n"
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	relayAddr := net.JoinHostPort(f.cfg.Relay.Address, strconv.Itoa(f.cfg.Relay.Port))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Already delivered
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Logout() error {
	return nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message and relays it when relaying is enabled
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.handleMessage(context.Background(), s.sender, raw)
	if err != nil {
		return err
	}

	if !s.filter.cfg.Relay.Enabled {
		return nil
	}
	if err := s.filter.relay(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to relay email",
			zap.String("from", s.sender),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary relay failure",
		}
	}
	return nil
}
