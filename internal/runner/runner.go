// Package runner owns concurrent workflow execution: each new workflow runs
// on its own goroutine, suspended workflows are resumed on demand on a fresh
// goroutine reconstructed from their checkpoint, and every advance is
// translated into events for the presentation layer.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auramail/auramail/internal/bus"
	"github.com/auramail/auramail/internal/engine"
	"github.com/auramail/auramail/internal/mail"
	"github.com/auramail/auramail/internal/store"
)

// DefaultMaxWorkers bounds concurrently executing workflow advances. AI
// steps are latency-bound, but the mail provider may rate limit.
const DefaultMaxWorkers = 8

// Config wires a Runner.
type Config struct {
	Engine      *engine.Engine
	Inbound     engine.Definition
	Compose     engine.Definition
	Store       store.Store
	Checkpoints engine.Checkpointer
	Events      *bus.EventBus
	Logger      *slog.Logger

	// MaxWorkers caps concurrent workflow goroutines; <= 0 uses
	// DefaultMaxWorkers.
	MaxWorkers int
}

// Runner launches, resumes and cancels workflows.
type Runner struct {
	engine      *engine.Engine
	inbound     engine.Definition
	compose     engine.Definition
	store       store.Store
	checkpoints engine.Checkpointer
	events      *bus.EventBus
	logger      *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a Runner from cfg.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	return &Runner{
		engine:      cfg.Engine,
		inbound:     cfg.Inbound,
		compose:     cfg.Compose,
		store:       cfg.Store,
		checkpoints: cfg.Checkpoints,
		events:      cfg.Events,
		logger:      logger,
		sem:         make(chan struct{}, workers),
	}
}

// Submit starts an INBOUND_RESPONSE workflow for a newly detected message.
// The caller has already marked the message seen; a crash mid-workflow must
// not cause resubmission.
func (r *Runner) Submit(ctx context.Context, email mail.InboundEmail) (string, error) {
	workflowID := email.WorkflowID
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	rec := store.Record{
		WorkflowID: workflowID,
		Topology:   engine.TopologyInboundResponse,
		Status:     store.StatusActive,
		ConfigKey:  workflowID,
		CreatedAt:  time.Now(),
	}
	if err := r.store.Add(ctx, rec); err != nil {
		return "", fmt.Errorf("runner: persisting workflow %s: %w", workflowID, err)
	}

	st := engine.NewInboundState(workflowID, email)
	r.launch(rec, func(ctx context.Context) (engine.Result, error) {
		return r.engine.Start(ctx, r.inbound, rec.ConfigKey, st)
	})
	return workflowID, nil
}

// Compose starts an OUTBOUND_COMPOSE workflow from the user's intent and
// returns its workflow id.
func (r *Runner) Compose(ctx context.Context, intent bus.ComposeIntent) (string, error) {
	workflowID := intent.WorkflowID
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	rec := store.Record{
		WorkflowID: workflowID,
		Topology:   engine.TopologyOutboundCompose,
		Status:     store.StatusActive,
		ConfigKey:  workflowID,
		CreatedAt:  time.Now(),
	}
	if err := r.store.Add(ctx, rec); err != nil {
		return "", fmt.Errorf("runner: persisting workflow %s: %w", workflowID, err)
	}

	st := engine.NewComposeState(workflowID, intent.From, intent.To, intent.UsersIntent)
	r.launch(rec, func(ctx context.Context) (engine.Result, error) {
		return r.engine.Start(ctx, r.compose, rec.ConfigKey, st)
	})
	return workflowID, nil
}

// Resume injects the human's answer into a waiting workflow. Unknown ids
// and workflows not waiting for input are logged and ignored; combined with
// the single-consumer dispatcher this also rules out double resumes.
func (r *Runner) Resume(ctx context.Context, workflowID string, ans engine.Answer) {
	rec, err := r.store.Get(ctx, workflowID)
	if err != nil {
		r.logger.WarnContext(ctx, "resume_workflow_not_found",
			slog.String("workflow_id", workflowID),
		)
		return
	}
	if rec.Status != store.StatusWaitingForInput {
		r.logger.WarnContext(ctx, "resume_workflow_not_waiting",
			slog.String("workflow_id", workflowID),
			slog.String("status", string(rec.Status)),
		)
		return
	}

	if err := r.store.UpdateStatus(ctx, workflowID, store.StatusActive); err != nil {
		r.logger.ErrorContext(ctx, "resume_status_update_failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
		return
	}

	def := r.inbound
	if rec.Topology == engine.TopologyOutboundCompose {
		def = r.compose
	}

	r.launch(rec, func(ctx context.Context) (engine.Result, error) {
		return r.engine.Resume(ctx, def, rec.ConfigKey, ans)
	})
}

// Cancel removes a waiting workflow without running further nodes. No
// terminal event is emitted: the human initiated the cancellation.
func (r *Runner) Cancel(ctx context.Context, workflowID string) {
	rec, err := r.store.Get(ctx, workflowID)
	if err != nil {
		r.logger.WarnContext(ctx, "cancel_workflow_not_found",
			slog.String("workflow_id", workflowID),
		)
		return
	}
	if rec.Status != store.StatusWaitingForInput {
		r.logger.WarnContext(ctx, "cancel_workflow_not_waiting",
			slog.String("workflow_id", workflowID),
			slog.String("status", string(rec.Status)),
		)
		return
	}

	_ = r.store.Remove(ctx, workflowID)
	_ = r.checkpoints.Delete(ctx, rec.ConfigKey)
	r.logger.InfoContext(ctx, "workflow_cancelled", slog.String("workflow_id", workflowID))
}

// Wait blocks until all in-flight workflow goroutines finish their current
// advance (suspend or terminal).
func (r *Runner) Wait() {
	r.wg.Wait()
}

// launch runs one workflow advance on its own goroutine, bounded by the
// worker cap, and applies the outcome when it returns.
func (r *Runner) launch(rec store.Record, advance func(ctx context.Context) (engine.Result, error)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		ctx := context.Background()
		defer func() {
			if p := recover(); p != nil {
				r.fail(ctx, rec, fmt.Errorf("panic in workflow: %v", p), nil)
			}
		}()

		result, err := advance(ctx)
		if err != nil {
			r.fail(ctx, rec, err, result.State)
			return
		}
		r.apply(ctx, rec, result)
	}()
}

// apply inspects an advance result: suspension parks the record as waiting
// and surfaces the suspend point; a terminal node removes the record.
func (r *Runner) apply(ctx context.Context, rec store.Record, result engine.Result) {
	switch result.Outcome {
	case engine.OutcomeSuspended:
		if err := r.store.UpdateStatus(ctx, rec.WorkflowID, store.StatusWaitingForInput); err != nil {
			r.logger.ErrorContext(ctx, "suspend_status_update_failed",
				slog.String("workflow_id", rec.WorkflowID),
				slog.String("error", err.Error()),
			)
		}
		if ev, ok := r.suspendEvent(rec, result); ok {
			r.events.Publish(ev)
		}

	case engine.OutcomeCompleted:
		_ = r.store.Remove(ctx, rec.WorkflowID)
		if ev, ok := r.terminalEvent(rec, result.State); ok {
			r.events.Publish(ev)
		}
		r.logger.InfoContext(ctx, "workflow_completed",
			slog.String("workflow_id", rec.WorkflowID),
			slog.String("topology", string(rec.Topology)),
		)
	}
}

// fail drops the workflow: best-effort logging, record removal, and an
// explicit failure event so the human is not left watching an email that
// never shows a draft.
func (r *Runner) fail(ctx context.Context, rec store.Record, err error, st *engine.State) {
	r.logger.ErrorContext(ctx, "workflow_failed",
		slog.String("workflow_id", rec.WorkflowID),
		slog.String("topology", string(rec.Topology)),
		slog.Bool("contract_violation", engine.IsContractViolation(err)),
		slog.String("error", err.Error()),
	)

	_ = r.store.UpdateStatus(ctx, rec.WorkflowID, store.StatusFailed)
	_ = r.store.Remove(ctx, rec.WorkflowID)
	_ = r.checkpoints.Delete(ctx, rec.ConfigKey)

	ev := bus.Event{
		Type:       bus.EventWorkflowFailed,
		WorkflowID: rec.WorkflowID,
		Err:        err.Error(),
	}
	if st != nil && st.Email != nil {
		ev.EmailID = st.Email.ID
	}
	r.events.Publish(ev)
}

// suspendEvent maps a suspend point to its presentation-layer event.
func (r *Runner) suspendEvent(rec store.Record, result engine.Result) (bus.Event, bool) {
	st := result.State
	ev := bus.Event{WorkflowID: rec.WorkflowID}
	if st.Email != nil {
		ev.EmailID = st.Email.ID
	}

	switch result.Node {
	case engine.NodeAwaitDecision:
		ev.Type = bus.EventNotify
		ev.Summary = st.Summary
		return ev, true

	case engine.NodeAwaitApproval:
		ev.Draft = st.Draft
		rewrite := st.SendDecision == engine.SendRewrite
		if rec.Topology == engine.TopologyOutboundCompose {
			if rewrite {
				ev.Type = bus.EventSendEmailRewrite
			} else {
				ev.Type = bus.EventSendEmailDraft
			}
		} else {
			if rewrite {
				ev.Type = bus.EventRewrite
			} else {
				ev.Type = bus.EventApproval
			}
		}
		return ev, true
	}

	r.logger.Warn("unknown_suspend_node", slog.String("node", result.Node))
	return bus.Event{}, false
}

// terminalEvent reports the terminal decision for inbound workflows; an
// ignore classification surfaces as a spam event. Successful sends emit
// nothing further.
func (r *Runner) terminalEvent(rec store.Record, st *engine.State) (bus.Event, bool) {
	if rec.Topology != engine.TopologyInboundResponse || st == nil {
		return bus.Event{}, false
	}
	if st.Decision != engine.DecisionIgnore {
		return bus.Event{}, false
	}

	ev := bus.Event{
		Type:       bus.EventSpam,
		WorkflowID: rec.WorkflowID,
		Summary:    st.Summary,
	}
	if st.Email != nil {
		ev.EmailID = st.Email.ID
	}
	return ev, true
}
