package detection

import (
	"fmt"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/rules"
)

func ruleAttachments(m *message, rs *rules.RuleSet) []core.Finding {
	w := rs.Weights()
	findings := dangerousAttachmentFindings(m, rs)

	hasArchive := false
	for _, name := range m.email.Attachments {
		parts := extensions(name)
		if len(parts) >= 3 && rs.IsDangerousExtension(parts[len(parts)-1]) {
			findings = append(findings, finding("double_extension", w.DoubleExtension,
				fmt.Sprintf("Suspicious double extension: %s", name)))
		}
		if len(parts) >= 2 && rs.IsArchiveExtension(parts[len(parts)-1]) {
			hasArchive = true
		}
	}

	if hasArchive && rs.Matches(rules.PatternCredential, m.text) {
		findings = append(findings, finding("archive_with_credentials", w.ArchiveWithCredentials,
			"Archive attached together with a password mention"))
	}
	return findings
}

func ruleDangerousAttachments(m *message, rs *rules.RuleSet) []core.Finding {
	return dangerousAttachmentFindings(m, rs)
}

func dangerousAttachmentFindings(m *message, rs *rules.RuleSet) []core.Finding {
	var findings []core.Finding
	for _, name := range m.email.Attachments {
		parts := extensions(name)
		if len(parts) >= 2 && rs.IsDangerousExtension(parts[len(parts)-1]) {
			findings = append(findings, finding("dangerous_attachment", rs.Weights().DangerousAttachment,
				fmt.Sprintf("Risky attachment: %s", name)))
		}
	}
	return findings
}

// extensions splits a lowercased file name on dots. "facture.pdf.exe" gives
// ["facture", "pdf", "exe"].
func extensions(name string) []string {
	return strings.Split(strings.ToLower(strings.TrimSpace(name)), ".")
}
