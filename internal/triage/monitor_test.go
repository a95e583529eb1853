package triage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auramail/auramail/internal/ai"
	"github.com/auramail/auramail/internal/bus"
	"github.com/auramail/auramail/internal/checkpoint"
	"github.com/auramail/auramail/internal/emailstate"
	"github.com/auramail/auramail/internal/engine"
	"github.com/auramail/auramail/internal/mail"
	"github.com/auramail/auramail/internal/runner"
	"github.com/auramail/auramail/internal/store"
)

type queueFetcher struct {
	emails []mail.InboundEmail
	since  []time.Time
}

func (f *queueFetcher) FetchSince(_ context.Context, since time.Time) ([]mail.InboundEmail, error) {
	f.since = append(f.since, since)
	return f.emails, nil
}

type notifyClassifier struct{}

func (notifyClassifier) Classify(context.Context, ai.ClassifyInput) (ai.Classification, error) {
	return ai.Classification{Classification: ai.ClassifyNotify}, nil
}

type noopSummarizer struct{}

func (noopSummarizer) Summarize(context.Context, string) (ai.Summary, error) {
	return ai.Summary{SummaryContent: "summary"}, nil
}

type noopWriter struct{}

func (noopWriter) Draft(context.Context, []ai.Message) (ai.Draft, error) {
	return ai.Draft{To: "alice@example.com", Subject: "Re", Message: "ok"}, nil
}

type noopSender struct{}

func (noopSender) Send(context.Context, mail.OutgoingEmail) error { return nil }

type monitorHarness struct {
	monitor *Monitor
	fetcher *queueFetcher
	state   *emailstate.State
	stores  *store.MemoryStore
	events  *bus.EventBus
	runner  *runner.Runner
}

func newMonitorHarness(t *testing.T) *monitorHarness {
	t.Helper()

	deps := engine.Deps{
		Classifier:   notifyClassifier{},
		Summarizer:   noopSummarizer{},
		Writer:       noopWriter{},
		Sender:       noopSender{},
		OwnerAddress: "me@example.com",
	}
	cps := checkpoint.NewMemoryCheckpointer()
	h := &monitorHarness{
		fetcher: &queueFetcher{},
		state:   emailstate.New(filepath.Join(t.TempDir(), "state.json"), "me@example.com"),
		stores:  store.NewMemoryStore(),
		events:  bus.NewEventBus(),
	}
	h.runner = runner.New(runner.Config{
		Engine:      engine.New(cps, nil),
		Inbound:     engine.InboundResponse(deps),
		Compose:     engine.OutboundCompose(deps),
		Store:       h.stores,
		Checkpoints: cps,
		Events:      h.events,
	})
	h.monitor = NewMonitor(h.fetcher, h.state, h.runner, h.events, time.Minute, nil)
	return h
}

func inbound(id string) mail.InboundEmail {
	return mail.InboundEmail{
		ID:       id,
		ThreadID: "thread-" + id,
		Sender:   "alice@example.com",
		Subject:  "hello",
		Body:     "Can we meet?",
		SentTime: time.Now(),
	}
}

// TestPoll_FirstRunPrimesWithoutSubmitting checks that mail already in the
// inbox when the ledger is brand new is marked seen but never triaged.
func TestPoll_FirstRunPrimesWithoutSubmitting(t *testing.T) {
	t.Parallel()

	h := newMonitorHarness(t)
	h.fetcher.emails = []mail.InboundEmail{inbound("msg-1"), inbound("msg-2")}

	require.NoError(t, h.monitor.Poll(context.Background()))
	h.runner.Wait()

	records, err := h.stores.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, h.events.Drain(0))
	require.False(t, h.state.IsNew("msg-1", "thread-msg-1", "alice@example.com"))
}

func TestPoll_SubmitsUnseenOnce(t *testing.T) {
	t.Parallel()

	h := newMonitorHarness(t)
	ctx := context.Background()

	// Prime on an empty inbox.
	require.NoError(t, h.monitor.Poll(ctx))

	h.fetcher.emails = []mail.InboundEmail{inbound("msg-1")}
	require.NoError(t, h.monitor.Poll(ctx))
	h.runner.Wait()

	evs := h.events.Drain(0)
	require.Len(t, evs, 2)
	require.Equal(t, bus.EventNewEmail, evs[0].Type)
	require.Equal(t, "msg-1", evs[0].EmailID)
	require.NotEmpty(t, evs[0].WorkflowID)
	require.Equal(t, bus.EventNotify, evs[1].Type)
	require.Equal(t, evs[0].WorkflowID, evs[1].WorkflowID)

	// The same message showing up in the next fetch is a duplicate.
	require.NoError(t, h.monitor.Poll(ctx))
	h.runner.Wait()
	require.Empty(t, h.events.Drain(0))

	// So is a different message on the same thread.
	reply := inbound("msg-1")
	reply.ID = "msg-1b"
	h.fetcher.emails = []mail.InboundEmail{reply}
	require.NoError(t, h.monitor.Poll(ctx))
	h.runner.Wait()
	require.Empty(t, h.events.Drain(0))
}

func TestPoll_SkipsOwnMail(t *testing.T) {
	t.Parallel()

	h := newMonitorHarness(t)
	ctx := context.Background()
	require.NoError(t, h.monitor.Poll(ctx))

	own := inbound("msg-own")
	own.Sender = "Me <me@example.com>"
	h.fetcher.emails = []mail.InboundEmail{own}

	require.NoError(t, h.monitor.Poll(ctx))
	h.runner.Wait()
	require.Empty(t, h.events.Drain(0))
}

// TestSince_WatermarkReplacesStartOfDay verifies the fetch horizon: start
// of today on a fresh ledger, the recorded shutdown time afterwards.
func TestSince_WatermarkReplacesStartOfDay(t *testing.T) {
	t.Parallel()

	h := newMonitorHarness(t)
	fixed := time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)
	h.monitor.now = func() time.Time { return fixed }

	ctx := context.Background()
	require.NoError(t, h.monitor.Poll(ctx))
	require.Len(t, h.fetcher.since, 1)
	require.Equal(t, time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC), h.fetcher.since[0])

	require.NoError(t, h.state.RecordShutdown())
	require.NoError(t, h.monitor.Poll(ctx))
	require.Len(t, h.fetcher.since, 2)
	require.Equal(t, h.state.Watermark(), h.fetcher.since[1])
}

func TestRun_RecordsWatermarkOnShutdown(t *testing.T) {
	t.Parallel()

	h := newMonitorHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- h.monitor.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("monitor did not stop on cancel")
	}
	require.False(t, h.state.Watermark().IsZero())
}
