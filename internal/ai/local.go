package ai

import (
	"context"
	"fmt"
	"strings"
)

// Deterministic local implementations of the collaborator contracts. They
// let the daemon and its tests run without a model backend; production
// deployments plug in real model clients instead.

// KeywordClassifier flags obvious bulk mail as ignore and notifies on
// everything else, mirroring the default triage rules.
type KeywordClassifier struct{}

var _ Classifier = (*KeywordClassifier)(nil)

var ignoreMarkers = []string{
	"unsubscribe",
	"newsletter",
	"promotion",
	"no-reply",
	"noreply",
}

func (KeywordClassifier) Classify(ctx context.Context, in ClassifyInput) (Classification, error) {
	haystack := strings.ToLower(in.Sender + " " + in.Subject + " " + in.Body)
	for _, marker := range ignoreMarkers {
		if strings.Contains(haystack, marker) {
			return Classification{
				Classification: ClassifyIgnore,
				Reasoning:      fmt.Sprintf("contains bulk-mail marker %q", marker),
			}, nil
		}
	}
	return Classification{
		Classification: ClassifyNotify,
		Reasoning:      "no bulk-mail markers found",
	}, nil
}

// ExtractSummarizer takes the leading sentences of the content as the
// summary.
type ExtractSummarizer struct {
	// MaxSentences caps the summary length; <= 0 means 3.
	MaxSentences int
}

var _ Summarizer = (*ExtractSummarizer)(nil)

func (s ExtractSummarizer) Summarize(ctx context.Context, content string) (Summary, error) {
	max := s.MaxSentences
	if max <= 0 {
		max = 3
	}

	var sentences []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "**") || strings.HasPrefix(line, "---") {
			continue
		}
		for _, sentence := range strings.SplitAfter(line, ". ") {
			if sentence = strings.TrimSpace(sentence); sentence != "" {
				sentences = append(sentences, sentence)
			}
			if len(sentences) == max {
				break
			}
		}
		if len(sentences) == max {
			break
		}
	}
	return Summary{SummaryContent: strings.Join(sentences, " ")}, nil
}

// TemplateWriter produces a minimal acknowledgement draft addressed to the
// first recipient it can find in the history.
type TemplateWriter struct {
	SignOff string
}

var _ Writer = (*TemplateWriter)(nil)

func (w TemplateWriter) Draft(ctx context.Context, history []Message) (Draft, error) {
	if len(history) == 0 {
		return Draft{}, fmt.Errorf("empty drafting history")
	}

	to := extractRecipient(history)
	signOff := w.SignOff
	if signOff == "" {
		signOff = "Best regards"
	}

	latest := history[len(history)-1].Content
	return Draft{
		To:      to,
		Subject: "Re: your email",
		Message: fmt.Sprintf("Dear %s,\n\nThank you for your email. %s\n\n%s", to, intentLine(latest), signOff),
	}, nil
}

// extractRecipient scans human turns for the "send to <addr>:" phrasing the
// intent prompts use.
func extractRecipient(history []Message) string {
	for _, msg := range history {
		if msg.Role != RoleHuman {
			continue
		}
		for _, marker := range []string{"send to ", " to "} {
			if idx := strings.Index(msg.Content, marker); idx >= 0 {
				rest := msg.Content[idx+len(marker):]
				if end := strings.IndexAny(rest, ":\n ,"); end > 0 {
					return rest[:end]
				}
			}
		}
	}
	return "recipient"
}

func intentLine(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return "I will get back to you shortly."
	}
	return "Regarding: " + last
}
