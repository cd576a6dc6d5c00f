package notifications

import (
	"fmt"
	"log/slog"
)

const (
	TransportLog  = "log"
	TransportSMTP = "smtp"
)

// NewTransport builds the delivery backend named by kind, wrapped with a timeout,
// a circuit breaker and per-result counting.
func NewTransport(kind string, smtpCfg SMTPConfig, counter Counter, log *slog.Logger) (Sender, error) {
	var inner Sender

	switch kind {
	case "", TransportLog:
		kind = TransportLog
		inner = NewLogSender(log, LogSenderConfig{})
	case TransportSMTP:
		s, err := NewSMTPSender(smtpCfg)
		if err != nil {
			return nil, err
		}
		inner = s
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}

	protected := NewProtectedSender(inner, ProtectedSenderConfig{})

	return NewMeteredSender(protected, kind, counter), nil
}
