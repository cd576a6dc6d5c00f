package jobs

import "github.com/geocoder89/workerhub/internal/notifications"

// SendEmailPayload carries a fully rendered message so the worker needs no DB reads to deliver it.
type SendEmailPayload struct {
	notifications.Message
	RequestID string `json:"request_id,omitempty"`
}
