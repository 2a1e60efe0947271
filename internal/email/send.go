package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 5 * time.Second

// SendAsync delivers msg in the background. The send outlives ctx's
// cancellation but is bounded by its own timeout.
func SendAsync(ctx context.Context, sender EmailSender, recipient string, msg Message, logger *zerolog.Logger) {
	recipient = strings.TrimSpace(recipient)
	if sender == nil || recipient == "" {
		return
	}
	if msg.Subject == "" || msg.Body == "" {
		return
	}

	sendCtx, cancel := newEmailContext(ctx, sendTimeout)
	go func() {
		defer cancel()
		if err := sender.Send(sendCtx, recipient, msg.Subject, msg.Body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send notification email")
		}
	}()
}

// SendNow delivers msg synchronously with the package send timeout.
func SendNow(ctx context.Context, sender EmailSender, recipient string, msg Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return sender.Send(sendCtx, recipient, msg.Subject, msg.Body)
}
