package runner

import (
	"context"
	"log/slog"

	"github.com/auramail/auramail/internal/bus"
	"github.com/auramail/auramail/internal/engine"
)

// Dispatcher is the single consumer of the command bus. It blocks waiting
// for the next command and routes it to the runner; per-workflow ordering
// follows from there being exactly one dispatcher loop.
type Dispatcher struct {
	commands *bus.CommandBus
	runner   *Runner
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. logger may be nil.
func NewDispatcher(commands *bus.CommandBus, r *Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{commands: commands, runner: r, logger: logger}
}

// Run consumes commands until ctx is done. Command handling errors never
// crash the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "dispatcher_started")
	for {
		cmd, err := d.commands.Next(ctx)
		if err != nil {
			return err
		}
		d.handle(ctx, cmd)
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd bus.Command) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "command_handler_panic",
				slog.String("command", string(cmd.Type)),
				slog.Any("panic", p),
			)
		}
	}()

	d.logger.DebugContext(ctx, "command_received",
		slog.String("command", string(cmd.Type)),
		slog.String("workflow_id", cmd.WorkflowID),
	)

	switch cmd.Type {
	case bus.CommandResumeWorkflow, bus.CommandApproveDraft, bus.CommandRejectDraft, bus.CommandSendEmail:
		if cmd.WorkflowID == "" {
			d.logger.Warn("command_missing_workflow_id", slog.String("command", string(cmd.Type)))
			return
		}
		d.runner.Resume(ctx, cmd.WorkflowID, engine.Answer{Flag: cmd.Flag, Feedback: cmd.Feedback})

	case bus.CommandGenerateEmail:
		if cmd.Compose == nil {
			d.logger.Warn("command_missing_compose_intent")
			return
		}
		if _, err := d.runner.Compose(ctx, *cmd.Compose); err != nil {
			d.logger.ErrorContext(ctx, "compose_failed", slog.String("error", err.Error()))
		}

	case bus.CommandCancelWorkflow:
		d.runner.Cancel(ctx, cmd.WorkflowID)

	default:
		d.logger.Warn("unknown_command", slog.String("command", string(cmd.Type)))
	}
}
