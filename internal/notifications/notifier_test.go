package notifications

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetMessage(t *testing.T) {
	msg := PasswordResetMessage("alice@example.com", "alice", "https://app/reset/YWJj/tok", time.Hour)

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Password Reset Request", msg.Subject)
	assert.Contains(t, msg.Body, "Hi alice")
	assert.Contains(t, msg.Body, "https://app/reset/YWJj/tok")
	assert.Contains(t, msg.Body, "1h0m0s")
	require.NoError(t, msg.Validate())
}

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Subject: "s"}.Validate())
	assert.Error(t, Message{To: "a@b.c", Subject: "  "}.Validate())
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(nil, LogSenderConfig{})
	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))

	failing := NewLogSender(nil, LogSenderConfig{FailSend: true})
	assert.Error(t, failing.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))

	slow := NewLogSender(nil, LogSenderConfig{Delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, slow.Send(ctx, Message{To: "a@b.c", Subject: "s"}), context.Canceled)
}

func TestNewSMTPSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SMTPConfig
		wantErr string
	}{
		{name: "missing host", cfg: SMTPConfig{FromAddress: "noreply@example.com"}, wantErr: "host is required"},
		{name: "missing from", cfg: SMTPConfig{Host: "smtp.example.com"}, wantErr: "from address is required"},
		{name: "valid", cfg: SMTPConfig{Host: "smtp.example.com", FromAddress: "noreply@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSMTPSender(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 587, s.cfg.Port)
		})
	}
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", FromAddress: "Workerhub <noreply@example.com>"})
	require.NoError(t, err)

	raw := string(s.buildMessage(Message{To: "a@b.c", Subject: "Hello", Body: "line1\nline2"}))

	assert.True(t, strings.HasPrefix(raw, "From: Workerhub <noreply@example.com>\r\n"))
	assert.Contains(t, raw, "To: a@b.c\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2"))
	assert.Equal(t, "noreply@example.com", extractEmail(s.cfg.FromAddress))
	assert.Equal(t, "plain@example.com", extractEmail("plain@example.com"))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrCircuitOpen))
	assert.True(t, IsRetryable(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, IsRetryable(errors.New("451 local error")))
	assert.False(t, IsRetryable(errors.New("550 mailbox unavailable")))
}

type countingSink struct {
	results []string
}

func (c *countingSink) CountNotification(transport, result string) {
	c.results = append(c.results, transport+":"+result)
}

type stubSender struct{ err error }

func (s stubSender) Send(context.Context, Message) error { return s.err }

func TestMeteredSender_CountsResults(t *testing.T) {
	sink := &countingSink{}
	msg := Message{To: "a@example.com", Subject: "s", Body: "b"}

	require.NoError(t, NewMeteredSender(stubSender{}, "smtp", sink).Send(context.Background(), msg))
	require.ErrorIs(t, NewMeteredSender(stubSender{err: ErrCircuitOpen}, "smtp", sink).Send(context.Background(), msg), ErrCircuitOpen)
	require.Error(t, NewMeteredSender(stubSender{err: errors.New("boom")}, "log", sink).Send(context.Background(), msg))

	assert.Equal(t, []string{"smtp:ok", "smtp:circuit_open", "log:error"}, sink.results)
}

func TestNewTransport(t *testing.T) {
	sink := &countingSink{}

	s, err := NewTransport("", SMTPConfig{}, sink, nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Body: "b"}))
	assert.Equal(t, []string{"log:ok"}, sink.results)

	_, err = NewTransport(TransportSMTP, SMTPConfig{}, sink, nil)
	require.Error(t, err)

	_, err = NewTransport("pigeon", SMTPConfig{}, sink, nil)
	require.Error(t, err)
}
