package engine

import (
	"github.com/auramail/auramail/internal/ai"
	"github.com/auramail/auramail/internal/mail"
)

// Topology names the node graph a workflow follows.
type Topology string

const (
	TopologyInboundResponse Topology = "INBOUND_RESPONSE"
	TopologyOutboundCompose Topology = "OUTBOUND_COMPOSE"
)

// Decision values produced by the classify node.
const (
	DecisionIgnore = "ignore"
	DecisionNotify = "notify"
)

// InterruptDecision values produced at the first suspend point.
const (
	InterruptResponse = "response"
	InterruptIgnore   = "ignore"
)

// SendDecision values produced at the approval suspend point.
const (
	SendResponse = "response"
	SendRewrite  = "rewrite"
	SendError    = "error"
)

// State carries a workflow's internal variables between nodes. It is the
// unit of checkpointing and must stay JSON-serializable.
type State struct {
	WorkflowID string `json:"workflow_id"`

	// Email is the immutable source message for inbound workflows; nil
	// for outbound compose.
	Email *mail.InboundEmail `json:"email,omitempty"`

	// Messages is the growing drafting history used as LLM context.
	Messages []ai.Message `json:"messages"`

	Decision          string `json:"decision"`
	InterruptDecision string `json:"interrupt_decision"`
	SendDecision      string `json:"send_decision"`

	Summary string `json:"summary"`

	// Draft is the human-readable rendering of DraftEmail.
	Draft      string              `json:"draft_response"`
	DraftEmail *mail.OutgoingEmail `json:"output_schema,omitempty"`

	// FirstWrite distinguishes "draft just produced" from "draft
	// resubmitted after feedback".
	FirstWrite bool `json:"first_write"`
}

// NewInboundState seeds the state for an INBOUND_RESPONSE workflow.
func NewInboundState(workflowID string, email mail.InboundEmail) *State {
	email.WorkflowID = workflowID
	return &State{
		WorkflowID: workflowID,
		Email:      &email,
		FirstWrite: true,
	}
}

// NewComposeState seeds the state for an OUTBOUND_COMPOSE workflow from the
// user's intent.
func NewComposeState(workflowID, from, to, usersIntent string) *State {
	return &State{
		WorkflowID: workflowID,
		Messages: []ai.Message{
			{Role: ai.RoleHuman, Content: ai.ComposeIntentPrompt(from, to, usersIntent)},
		},
		FirstWrite: true,
	}
}

// AppendMessage grows the drafting history.
func (s *State) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, ai.Message{Role: role, Content: content})
}

// draftContextLimit caps the history sent to the writer: once the history
// exceeds this many entries, only the most recent two are sent, which keeps
// the latest feedback/draft pair while bounding cost.
const draftContextLimit = 2

// DraftContext returns the slice of history the writer should see.
func (s *State) DraftContext() []ai.Message {
	if len(s.Messages) > draftContextLimit {
		return s.Messages[len(s.Messages)-2:]
	}
	return s.Messages
}
