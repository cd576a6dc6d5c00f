package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is a single plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("message recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("message subject is required")
	}
	return nil
}

const passwordResetSubject = "Password Reset Request"

// PasswordResetMessage renders the reset email for one worker.
func PasswordResetMessage(to, username, link string, validFor time.Duration) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", username)
	b.WriteString("We received a request to reset the password for your account.\n")
	fmt.Fprintf(&b, "Click the link below to reset your password:\n\n%s\n\n", link)
	if validFor > 0 {
		fmt.Fprintf(&b, "This link expires in %s and can only be used once.\n", validFor.Round(time.Minute))
	}
	b.WriteString("If you did not request this, you can ignore this email.\n")

	return Message{
		To:      to,
		Subject: passwordResetSubject,
		Body:    b.String(),
	}
}
