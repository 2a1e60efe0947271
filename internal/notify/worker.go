package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codr1/Padelicious/internal/email"
)

// EmailWorker delivers published notification events by email.
type EmailWorker struct {
	sender   email.EmailSender
	clubName string
}

func NewEmailWorker(sender email.EmailSender, clubName string) *EmailWorker {
	return &EmailWorker{sender: sender, clubName: clubName}
}

// Handle decodes one event and emails every recipient. A failure for any
// recipient fails the whole event.
func (w *EmailWorker) Handle(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode notification event: %w", err)
	}
	if len(event.Recipients) == 0 {
		return nil
	}

	msg := email.BuildNotificationEmail(w.clubName, event.RecipientName, event.Title, event.Message)
	var errs []error
	for _, recipient := range event.Recipients {
		if err := email.SendNow(ctx, w.sender, recipient, msg); err != nil {
			errs = append(errs, fmt.Errorf("notification %d to %s: %w", event.NotificationID, recipient, err))
		}
	}
	return errors.Join(errs...)
}
