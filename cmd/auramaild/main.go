// Command auramaild runs the email-triage backend headless: the discovery
// loop, the workflow runner, the command dispatcher, and an event drain
// that logs what a GUI frontend would render.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/auramail/auramail/internal/ai"
	"github.com/auramail/auramail/internal/bus"
	"github.com/auramail/auramail/internal/checkpoint"
	"github.com/auramail/auramail/internal/config"
	"github.com/auramail/auramail/internal/emailstate"
	"github.com/auramail/auramail/internal/engine"
	"github.com/auramail/auramail/internal/mail"
	"github.com/auramail/auramail/internal/rules"
	"github.com/auramail/auramail/internal/runner"
	"github.com/auramail/auramail/internal/store"
	"github.com/auramail/auramail/internal/triage"
)

func main() {
	root := &cobra.Command{
		Use:          "auramaild",
		Short:        "Email triage backend: watch, classify, summarize, draft, approve",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("daemon_exit", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	workflows, checkpoints, closeStores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	state, err := emailstate.Load(cfg.Paths.EmailState, cfg.Account.Address)
	if err != nil {
		return err
	}

	ruleEngine, err := rules.NewEngine(cfg.Rules)
	if err != nil {
		return err
	}

	dataDir := filepath.Dir(cfg.Paths.DB)
	deps := engine.Deps{
		Classifier: ai.KeywordClassifier{},
		Summarizer: ai.ExtractSummarizer{},
		Writer:     ai.TemplateWriter{SignOff: "Best regards,\n" + cfg.Account.DisplayName},
		Sender: mail.NewFallbackSender(
			&mail.SpoolSender{Dir: filepath.Join(dataDir, "outbox")},
			&mail.SpoolSender{Dir: filepath.Join(dataDir, "outbox-retry")},
			logger,
		),
		Rules:        ruleEngine,
		OwnerAddress: cfg.Account.Address,
		Logger:       logger,
	}

	events := bus.NewEventBus()
	commands := bus.NewCommandBus()

	r := runner.New(runner.Config{
		Engine:      engine.New(checkpoints, logger),
		Inbound:     engine.InboundResponse(deps),
		Compose:     engine.OutboundCompose(deps),
		Store:       workflows,
		Checkpoints: checkpoints,
		Events:      events,
		Logger:      logger,
		MaxWorkers:  cfg.Workers.Max,
	})

	monitor := triage.NewMonitor(
		&mail.SpoolFetcher{Dir: filepath.Join(dataDir, "inbox")},
		state, r, events, cfg.Poll.Interval, logger,
	)

	dispatcher := runner.NewDispatcher(commands, r, logger)
	go func() {
		_ = dispatcher.Run(ctx)
	}()
	go drainEvents(ctx, events, cfg.Events.DrainMax, logger)

	err = monitor.Run(ctx)
	r.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	logger.Info("daemon_stopped")
	return nil
}

// drainEvents stands in for the GUI polling loop: a bounded non-blocking
// drain per cycle so the producers are never blocked.
func drainEvents(ctx context.Context, events *bus.EventBus, max int, logger *slog.Logger) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, ev := range events.Drain(max) {
			logger.Info("event",
				slog.String("type", string(ev.Type)),
				slog.String("workflow_id", ev.WorkflowID),
				slog.String("email_id", ev.EmailID),
			)
		}
	}
}

func openStores(cfg *config.Config) (store.Store, engine.Checkpointer, func(), error) {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		return store.NewRedisStore(client, "auramail:"),
			checkpoint.NewRedisCheckpointer(client, "auramail:"),
			func() { _ = client.Close() },
			nil
	}

	if dir := filepath.Dir(cfg.Paths.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("creating db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", cfg.Paths.DB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	workflows, err := store.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	checkpoints, err := checkpoint.NewSQLiteCheckpointer(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return workflows, checkpoints, func() { _ = db.Close() }, nil
}
