package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SendError reports that delivery failed on both the primary and the
// fallback path. The workflow that hit it is marked failed.
type SendError struct {
	Primary  error
	Fallback error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed: primary: %v, fallback: %v", e.Primary, e.Fallback)
}

// IsSendError reports whether err wraps a SendError.
func IsSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se)
}

// FallbackSender tries the primary sender once and, if it fails, falls
// back to the secondary sender exactly once before giving up.
type FallbackSender struct {
	Primary   Sender
	Secondary Sender
	Logger    *slog.Logger
}

// NewFallbackSender wires a primary and secondary send path. secondary may
// be nil, in which case a primary failure is immediately final.
func NewFallbackSender(primary, secondary Sender, logger *slog.Logger) *FallbackSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSender{Primary: primary, Secondary: secondary, Logger: logger}
}

var _ Sender = (*FallbackSender)(nil)

func (s *FallbackSender) Send(ctx context.Context, email OutgoingEmail) error {
	primaryErr := s.Primary.Send(ctx, email)
	if primaryErr == nil {
		return nil
	}

	s.Logger.WarnContext(ctx, "send_primary_failed",
		slog.String("to", email.To),
		slog.String("error", primaryErr.Error()),
	)

	if s.Secondary == nil {
		return &SendError{Primary: primaryErr}
	}

	fallbackErr := s.Secondary.Send(ctx, email)
	if fallbackErr == nil {
		s.Logger.InfoContext(ctx, "send_fallback_succeeded", slog.String("to", email.To))
		return nil
	}

	return &SendError{Primary: primaryErr, Fallback: fallbackErr}
}
