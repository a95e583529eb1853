// Package ai declares the contracts for the model-backed triage steps.
// The concrete model calls are external collaborators; the core treats them
// as opaque functions with fixed input/output shapes.
package ai

import "context"

// Message roles in the drafting history.
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// Message is one turn of drafting context. The assistant turns are prior
// drafts, the human turns are the user's intent and rejection feedback.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Classification values the classifier is allowed to return. Anything else
// is a contract violation and fails the workflow.
const (
	ClassifyIgnore = "ignore"
	ClassifyNotify = "notify"
)

// ClassifyInput is the classifier contract input.
type ClassifyInput struct {
	Sender    string
	Recipient string
	Subject   string
	Body      string
}

// Classification is the classifier contract output.
type Classification struct {
	Classification string `json:"classification"`
	Reasoning      string `json:"reasoning"`
}

// Summary is the summarizer contract output.
type Summary struct {
	SummaryContent string `json:"summary_content"`
}

// Draft is the writer contract output.
type Draft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Classifier decides whether an email is worth the user's attention.
type Classifier interface {
	Classify(ctx context.Context, in ClassifyInput) (Classification, error)
}

// Summarizer condenses formatted email text.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (Summary, error)
}

// Writer drafts a reply from the ordered message history.
type Writer interface {
	Draft(ctx context.Context, history []Message) (Draft, error)
}
