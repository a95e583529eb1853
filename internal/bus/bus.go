// Package bus connects the backend and the presentation layer through two
// independent unbounded FIFO queues: events flow backend to frontend and
// never block their producers, commands flow frontend to backend and are
// consumed by a single dispatcher loop.
package bus

import (
	"context"
	"sync"

	"github.com/auramail/auramail/internal/mail"
)

// EventType tags an event emitted to the presentation layer.
type EventType string

const (
	EventNewEmail         EventType = "new_email"
	EventNotify           EventType = "notify"
	EventSpam             EventType = "spam"
	EventApproval         EventType = "approval"
	EventRewrite          EventType = "rewrite"
	EventSendEmailDraft   EventType = "send_email_draft"
	EventSendEmailRewrite EventType = "send_email_rewrite"
	EventWorkflowFailed   EventType = "workflow_failed"
)

// Event is immutable once published.
type Event struct {
	Type       EventType
	WorkflowID string
	EmailID    string

	// Summary is set for notify/spam events.
	Summary string
	// Draft is set for approval/rewrite and compose draft events.
	Draft string
	// Email is set for new_email events.
	Email *mail.InboundEmail
	// Err is set for workflow_failed events.
	Err string
}

// CommandType tags a command from the presentation layer.
type CommandType string

const (
	CommandResumeWorkflow CommandType = "resume_workflow"
	CommandGenerateEmail  CommandType = "generate_email"
	CommandApproveDraft   CommandType = "approve_draft"
	CommandRejectDraft    CommandType = "reject_draft"
	CommandSendEmail      CommandType = "send_email"
	CommandCancelWorkflow CommandType = "cancel_workflow"
)

// ComposeIntent starts an outbound compose workflow.
type ComposeIntent struct {
	From        string
	To          string
	UsersIntent string
	WorkflowID  string
}

// Command is immutable once sent. Flag and Feedback carry the human's
// decision for resume-shaped commands.
type Command struct {
	Type       CommandType
	WorkflowID string
	Flag       bool
	Feedback   string
	Compose    *ComposeIntent
}

// EventBus is the backend-to-frontend queue. Publish never blocks; the
// frontend drains a bounded batch per poll cycle so its periodic work is
// never starved. Within one workflow id, events come out in the order the
// engine produced them.
type EventBus struct {
	mu     sync.Mutex
	events []Event
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Publish appends an event. It never blocks.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Drain removes and returns at most max pending events, oldest first.
// It never blocks. max <= 0 drains everything.
func (b *EventBus) Drain(max int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.events)
	if n == 0 {
		return nil
	}
	if max > 0 && n > max {
		n = max
	}

	out := make([]Event, n)
	copy(out, b.events[:n])
	b.events = b.events[n:]
	return out
}

// Len returns the number of pending events.
func (b *EventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// CommandBus is the frontend-to-backend queue. Send never blocks; Next
// blocks its single consumer until a command arrives or ctx is done.
type CommandBus struct {
	mu       sync.Mutex
	commands []Command
	ready    chan struct{}
}

// NewCommandBus creates an empty CommandBus.
func NewCommandBus() *CommandBus {
	return &CommandBus{ready: make(chan struct{}, 1)}
}

// Send enqueues a command. It never blocks.
func (b *CommandBus) Send(cmd Command) {
	b.mu.Lock()
	b.commands = append(b.commands, cmd)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Next removes and returns the oldest pending command, blocking until one
// is available or ctx is done.
func (b *CommandBus) Next(ctx context.Context) (Command, error) {
	for {
		b.mu.Lock()
		if len(b.commands) > 0 {
			cmd := b.commands[0]
			b.commands = b.commands[1:]
			b.mu.Unlock()
			return cmd, nil
		}
		b.mu.Unlock()

		select {
		case <-b.ready:
		case <-ctx.Done():
			return Command{}, ctx.Err()
		}
	}
}

// Len returns the number of pending commands.
func (b *CommandBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commands)
}
