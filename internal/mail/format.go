package mail

import (
	"fmt"
	"strings"
)

// FormatEmailMarkdown renders an inbound email as markdown for display in
// suspend prompts and as LLM context.
func FormatEmailMarkdown(e InboundEmail, to string) string {
	idSection := ""
	if e.ID != "" {
		idSection = fmt.Sprintf("\n**ID**: %s", e.ID)
	}
	return fmt.Sprintf(`
**Subject**: %s
**From**: %s
**To**: %s%s

%s

---
`, e.Subject, e.Sender, to, idSection, e.Body)
}

// FormatDraftMarkdown renders a draft reply for human review.
func FormatDraftMarkdown(e OutgoingEmail) string {
	return fmt.Sprintf(`
Subject: %s
To: %s

%s

---
`, e.Subject, e.To, e.Message)
}

// NormalizeBody converts literal \n escape sequences into real newlines and
// collapses excessive blank lines. Model output frequently arrives with
// escaped newlines intact.
func NormalizeBody(body string) string {
	out := strings.ReplaceAll(body, `\n`, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out
}
