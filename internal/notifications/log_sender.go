package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogSenderConfig lets local runs simulate a slow or failing provider.
type LogSenderConfig struct {
	Delay    time.Duration
	FailSend bool
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log *slog.Logger
	cfg LogSenderConfig
}

func NewLogSender(log *slog.Logger, cfg LogSenderConfig) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log, cfg: cfg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Delay > 0 {
		select {
		case <-time.After(s.cfg.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.cfg.FailSend {
		return fmt.Errorf("provider down (simulated)")
	}

	// the body carries the reset link, so it is only emitted at debug level
	s.log.InfoContext(ctx, "notification.email",
		"to", msg.To,
		"subject", msg.Subject,
	)
	s.log.DebugContext(ctx, "notification.email.body", "to", msg.To, "body", msg.Body)

	return nil
}
