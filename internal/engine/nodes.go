package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auramail/auramail/internal/ai"
	"github.com/auramail/auramail/internal/mail"
	"github.com/auramail/auramail/internal/rules"
)

// Node names shared by the two topologies.
const (
	NodeClassify      = "classify"
	NodeSummarize     = "summarize"
	NodeAwaitDecision = "await_decision"
	NodeDraft         = "draft"
	NodeAwaitApproval = "await_approval"
	NodeSend          = "send"
)

// Deps are the collaborators the nodes call out to. Rules may be nil to
// disable the pre-classifier.
type Deps struct {
	Classifier ai.Classifier
	Summarizer ai.Summarizer
	Writer     ai.Writer
	Sender     mail.Sender
	Rules      *rules.Engine

	// OwnerAddress is the account owner's address, used as the recipient
	// when formatting inbound email context.
	OwnerAddress string

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// InboundResponse builds the reply-triage topology:
//
//	classify -> summarize -> await_decision -> draft -> await_approval -> send
//
// classify may terminate early on ignore, await_decision may terminate on a
// negative answer, and a rejected draft loops await_approval back to draft.
func InboundResponse(deps Deps) Definition {
	return MustDefinition(TopologyInboundResponse, NodeClassify,
		NodeDef{Name: NodeClassify, Run: classifyNode(deps)},
		NodeDef{Name: NodeSummarize, Run: summarizeNode(deps)},
		NodeDef{
			Name:    NodeAwaitDecision,
			Prompt:  decisionPrompt(deps),
			Resolve: resolveDecision(deps),
		},
		NodeDef{Name: NodeDraft, Run: draftNode(deps)},
		NodeDef{
			Name:    NodeAwaitApproval,
			Prompt:  approvalPrompt,
			Resolve: resolveApproval,
		},
		NodeDef{Name: NodeSend, Run: sendNode(deps)},
	)
}

// OutboundCompose builds the compose-from-intent topology:
//
//	draft -> await_approval -> send
//
// with the same rejected-draft loop back to draft.
func OutboundCompose(deps Deps) Definition {
	return MustDefinition(TopologyOutboundCompose, NodeDraft,
		NodeDef{Name: NodeDraft, Run: draftNode(deps)},
		NodeDef{
			Name:    NodeAwaitApproval,
			Prompt:  approvalPrompt,
			Resolve: resolveApproval,
		},
		NodeDef{Name: NodeSend, Run: sendNode(deps)},
	)
}

func classifyNode(deps Deps) NodeFunc {
	return func(ctx context.Context, st *State) (Command, error) {
		email := st.Email
		if email == nil {
			return Command{}, fmt.Errorf("classify: no input email")
		}

		decision, reasoning, err := classifyEmail(ctx, deps, email)
		if err != nil {
			return Command{}, err
		}

		deps.logger().InfoContext(ctx, "email_classified",
			slog.String("workflow_id", st.WorkflowID),
			slog.String("email_id", email.ID),
			slog.String("decision", decision),
			slog.String("reasoning", reasoning),
		)

		st.Decision = decision
		if decision == DecisionIgnore {
			return Command{Goto: End}, nil
		}
		return Command{Goto: NodeSummarize}, nil
	}
}

// classifyEmail consults the configured triage rules first; only when no
// rule matches does the model get called. The model's output must be
// exactly one of the declared classifications.
func classifyEmail(ctx context.Context, deps Deps, email *mail.InboundEmail) (decision, reasoning string, err error) {
	if deps.Rules != nil {
		action, matched, ruleErr := deps.Rules.Match(email.Sender, email.Subject, email.Body)
		if ruleErr != nil {
			deps.logger().WarnContext(ctx, "triage_rule_error", slog.String("error", ruleErr.Error()))
		} else if matched {
			return action, "matched triage rule", nil
		}
	}

	out, err := deps.Classifier.Classify(ctx, ai.ClassifyInput{
		Sender:    email.Sender,
		Recipient: deps.OwnerAddress,
		Subject:   email.Subject,
		Body:      email.Body,
	})
	if err != nil {
		return "", "", fmt.Errorf("classify: %w", err)
	}

	switch out.Classification {
	case ai.ClassifyIgnore, ai.ClassifyNotify:
		return out.Classification, out.Reasoning, nil
	default:
		return "", "", &ContractViolationError{Node: NodeClassify, Value: out.Classification}
	}
}

func summarizeNode(deps Deps) NodeFunc {
	return func(ctx context.Context, st *State) (Command, error) {
		content := mail.FormatEmailMarkdown(*st.Email, deps.OwnerAddress)

		summary, err := deps.Summarizer.Summarize(ctx, content)
		if err != nil {
			return Command{}, fmt.Errorf("summarize: %w", err)
		}

		st.Summary = summary.SummaryContent
		return Command{Goto: NodeAwaitDecision}, nil
	}
}

func decisionPrompt(deps Deps) PromptFunc {
	return func(st *State) Prompt {
		return Prompt{
			"question":     "Do you want to respond to this email?",
			"show_email":   mail.FormatEmailMarkdown(*st.Email, deps.OwnerAddress),
			"show_summary": st.Summary,
		}
	}
}

func resolveDecision(deps Deps) ResolveFunc {
	return func(ctx context.Context, st *State, ans Answer) (Command, error) {
		if !ans.Flag {
			st.InterruptDecision = InterruptIgnore
			return Command{Goto: End}, nil
		}

		st.InterruptDecision = InterruptResponse
		st.AppendMessage(ai.RoleHuman, ai.WriterIntentPrompt(
			st.Email.Sender,
			mail.FormatEmailMarkdown(*st.Email, deps.OwnerAddress),
			st.Summary,
			ans.Feedback,
		))
		return Command{Goto: NodeDraft}, nil
	}
}

func draftNode(deps Deps) NodeFunc {
	return func(ctx context.Context, st *State) (Command, error) {
		draft, err := deps.Writer.Draft(ctx, st.DraftContext())
		if err != nil {
			return Command{}, fmt.Errorf("draft: %w", err)
		}

		out := mail.OutgoingEmail{
			To:      draft.To,
			Subject: draft.Subject,
			Message: mail.NormalizeBody(draft.Message),
		}

		st.FirstWrite = false
		st.DraftEmail = &out
		st.Draft = mail.FormatDraftMarkdown(out)
		return Command{Goto: NodeAwaitApproval}, nil
	}
}

func approvalPrompt(st *State) Prompt {
	return Prompt{
		"question":       "Do you want to send this response?",
		"draft_response": st.Draft,
	}
}

func resolveApproval(ctx context.Context, st *State, ans Answer) (Command, error) {
	if ans.Flag {
		return Command{Goto: NodeSend}, nil
	}

	// Keep the rejected draft and the feedback as the newest history pair
	// so the next draft sees exactly what was wrong.
	st.AppendMessage(ai.RoleAssistant, st.Draft)
	st.AppendMessage(ai.RoleHuman, ai.RewriteFeedbackPrompt(ans.Feedback))
	st.SendDecision = SendRewrite
	return Command{Goto: NodeDraft}, nil
}

func sendNode(deps Deps) NodeFunc {
	return func(ctx context.Context, st *State) (Command, error) {
		if st.DraftEmail == nil {
			st.SendDecision = SendError
			return Command{}, fmt.Errorf("send: no draft to send")
		}

		if err := deps.Sender.Send(ctx, *st.DraftEmail); err != nil {
			st.SendDecision = SendError
			return Command{}, fmt.Errorf("send: %w", err)
		}

		deps.logger().InfoContext(ctx, "response_sent",
			slog.String("workflow_id", st.WorkflowID),
			slog.String("to", st.DraftEmail.To),
		)
		st.SendDecision = SendResponse
		return Command{Goto: End}, nil
	}
}
