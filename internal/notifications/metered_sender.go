package notifications

import (
	"context"
	"errors"
)

// Counter receives one call per send attempt; observability.Prom satisfies it.
type Counter interface {
	CountNotification(transport, result string)
}

type MeteredSender struct {
	inner     Sender
	transport string
	counter   Counter
}

func NewMeteredSender(inner Sender, transport string, counter Counter) *MeteredSender {
	return &MeteredSender{inner: inner, transport: transport, counter: counter}
}

func (s *MeteredSender) Send(ctx context.Context, msg Message) error {
	err := s.inner.Send(ctx, msg)

	result := "ok"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		result = "circuit_open"
	case err != nil:
		result = "error"
	}

	if s.counter != nil {
		s.counter.CountNotification(s.transport, result)
	}

	return err
}
