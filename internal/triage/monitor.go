// Package triage runs the inbox discovery loop: a single periodic timer
// that fetches new mail, filters it through the dedup ledger, and hands
// fresh messages to the workflow runner.
package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/auramail/auramail/internal/bus"
	"github.com/auramail/auramail/internal/emailstate"
	"github.com/auramail/auramail/internal/mail"
	"github.com/auramail/auramail/internal/runner"
)

// Monitor polls the mailbox and submits unseen messages. It is the only
// writer of the email state, so the ledger needs no locking.
type Monitor struct {
	fetcher  mail.Fetcher
	state    *emailstate.State
	runner   *runner.Runner
	events   *bus.EventBus
	interval time.Duration
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time

	primed bool
}

// NewMonitor creates a Monitor polling at the given interval.
func NewMonitor(fetcher mail.Fetcher, state *emailstate.State, r *runner.Runner, events *bus.EventBus, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		fetcher:  fetcher,
		state:    state,
		runner:   r,
		events:   events,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until ctx is done, then records the shutdown watermark so the
// next startup fetches "messages after shutdown" instead of "messages
// after today". Poll errors are logged and the loop continues.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "monitor_started", slog.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.Poll(ctx); err != nil {
			m.logger.ErrorContext(ctx, "poll_failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			if err := m.state.RecordShutdown(); err != nil {
				m.logger.Error("record_shutdown_failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one discovery cycle. Exported so the daemon can force an
// immediate check and so tests can drive the loop directly.
func (m *Monitor) Poll(ctx context.Context) error {
	emails, err := m.fetcher.FetchSince(ctx, m.since())
	if err != nil {
		return err
	}

	// On a fresh install there is no watermark to fetch from, so the first
	// batch only primes the ledger; everything already in the inbox today
	// is treated as handled.
	if !m.primed {
		m.primed = true
		if m.state.Watermark().IsZero() {
			for _, email := range emails {
				m.state.MarkSeen(email.ID, email.ThreadID)
			}
			m.logger.InfoContext(ctx, "first_run_primed", slog.Int("existing", len(emails)))
			return m.state.Save()
		}
	}

	submitted := 0
	for _, email := range emails {
		if !m.state.IsNew(email.ID, email.ThreadID, email.Sender) {
			continue
		}

		email.WorkflowID = uuid.NewString()

		// Seen ids are recorded at submission time, before the workflow
		// runs: a crash mid-workflow must not resubmit the message.
		m.state.MarkSeen(email.ID, email.ThreadID)
		if err := m.state.Save(); err != nil {
			m.logger.ErrorContext(ctx, "email_state_save_failed", slog.String("error", err.Error()))
		}

		m.events.Publish(bus.Event{
			Type:       bus.EventNewEmail,
			WorkflowID: email.WorkflowID,
			EmailID:    email.ID,
			Email:      &email,
		})

		if _, err := m.runner.Submit(ctx, email); err != nil {
			m.logger.ErrorContext(ctx, "submit_failed",
				slog.String("email_id", email.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		submitted++
	}

	if submitted > 0 {
		m.logger.InfoContext(ctx, "new_emails_submitted", slog.Int("count", submitted))
	}
	return nil
}

// since picks the fetch horizon: the shutdown watermark when one exists,
// otherwise the start of the current day.
func (m *Monitor) since() time.Time {
	if wm := m.state.Watermark(); !wm.IsZero() {
		return wm
	}
	now := m.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
