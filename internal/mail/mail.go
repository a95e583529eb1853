// Package mail defines the contracts between the triage core and the
// mailbox provider. Fetching and sending are external collaborators; the
// core only depends on these narrow interfaces.
package mail

import (
	"context"
	"time"
)

// InboundEmail is the shape of a message handed to the core by the
// mail-fetch collaborator. WorkflowID is empty until the discovery loop
// assigns one.
type InboundEmail struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Snippet    string    `json:"snippet"`
	SentTime   time.Time `json:"sentTime"`
	WorkflowID string    `json:"workflow_id,omitempty"`
}

// OutgoingEmail is what the draft writer produces and the sender consumes.
type OutgoingEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Fetcher retrieves messages from the mailbox provider.
type Fetcher interface {
	// FetchSince returns messages received after the given time.
	FetchSince(ctx context.Context, since time.Time) ([]InboundEmail, error)
}

// Sender delivers an outgoing email through the mailbox provider.
type Sender interface {
	Send(ctx context.Context, email OutgoingEmail) error
}
