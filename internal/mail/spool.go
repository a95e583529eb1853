package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SpoolFetcher reads inbound mail from a directory of JSON files, one
// InboundEmail per file. It exists so the daemon can run against a local
// spool (or a separate delivery agent) without a live mailbox provider.
type SpoolFetcher struct {
	Dir string
}

var _ Fetcher = (*SpoolFetcher)(nil)

// FetchSince returns every spooled message sent after the given time.
func (f *SpoolFetcher) FetchSince(ctx context.Context, since time.Time) ([]InboundEmail, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading spool dir: %w", err)
	}

	var emails []InboundEmail
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		data, err := os.ReadFile(filepath.Join(f.Dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading spooled email %s: %w", entry.Name(), err)
		}

		var email InboundEmail
		if err := json.Unmarshal(data, &email); err != nil {
			return nil, fmt.Errorf("decoding spooled email %s: %w", entry.Name(), err)
		}
		if email.SentTime.After(since) {
			emails = append(emails, email)
		}
	}
	return emails, nil
}

// SpoolSender writes outgoing mail as JSON files into a directory, for a
// separate delivery agent to pick up.
type SpoolSender struct {
	Dir string
}

var _ Sender = (*SpoolSender)(nil)

func (s *SpoolSender) Send(ctx context.Context, email OutgoingEmail) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox dir: %w", err)
	}

	data, err := json.MarshalIndent(email, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outgoing email: %w", err)
	}

	name := fmt.Sprintf("%d.json", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing outgoing email: %w", err)
	}
	return nil
}
