// Package notify records user and staff notifications and fans them out for
// delivery over AMQP or email.
package notify

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/email"
)

type Kind string

const (
	KindReservationCreated   Kind = "RESERVATION_CREATED"
	KindReservationCancelled Kind = "RESERVATION_CANCELLED"
	KindReservationReminder  Kind = "RESERVATION_REMINDER"
	KindPaymentReminder      Kind = "PAYMENT_REMINDER"
	KindPaymentSubmitted     Kind = "PAYMENT_SUBMITTED"
	KindPaymentStatus        Kind = "PAYMENT_STATUS"
	KindPaymentConflict      Kind = "PAYMENT_CONFLICT"
)

const (
	AudienceUser  = "user"
	AudienceStaff = "staff"

	publishTimeout = 5 * time.Second
)

// Dispatcher emits notifications. Calls never fail the caller; delivery
// problems are logged.
type Dispatcher interface {
	Notify(ctx context.Context, userID int64, kind Kind, title, message string)
	NotifyStaff(ctx context.Context, kind Kind, title, message string)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, int64, Kind, string, string) {}
func (Nop) NotifyStaff(context.Context, Kind, string, string)   {}

// Publisher is satisfied by *mq.Publisher.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Event is the message published for every stored notification.
type Event struct {
	NotificationID int64     `json:"notification_id"`
	UserID         *int64    `json:"user_id,omitempty"`
	Audience       string    `json:"audience"`
	Kind           Kind      `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Recipients     []string  `json:"recipients"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func RoutingKey(kind Kind) string {
	return "notification." + strings.ToLower(string(kind))
}

type Service struct {
	queries   dbgen.Querier
	publisher Publisher
	sender    email.EmailSender
	clubName  string
	logger    zerolog.Logger
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithEmailSender(sender email.EmailSender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithClubName(name string) Option {
	return func(s *Service) { s.clubName = name }
}

func NewService(queries dbgen.Querier, opts ...Option) *Service {
	s := &Service{
		queries: queries,
		logger:  log.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Notify(ctx context.Context, userID int64, kind Kind, title, message string) {
	row, err := s.queries.CreateNotification(ctx, dbgen.CreateNotificationParams{
		UserID:   sql.NullInt64{Int64: userID, Valid: true},
		Audience: AudienceUser,
		Kind:     string(kind),
		Title:    title,
		Message:  message,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Msg("Failed to store notification")
		return
	}

	event := Event{
		NotificationID: row.ID,
		UserID:         &userID,
		Audience:       AudienceUser,
		Kind:           kind,
		Title:          title,
		Message:        message,
		CreatedAt:      row.CreatedAt,
	}
	user, err := s.queries.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Notification stored without deliverable recipient")
		return
	}
	event.Recipients = []string{user.Email}
	event.RecipientName = user.FirstName

	s.deliver(ctx, event)
}

func (s *Service) NotifyStaff(ctx context.Context, kind Kind, title, message string) {
	row, err := s.queries.CreateNotification(ctx, dbgen.CreateNotificationParams{
		Audience: AudienceStaff,
		Kind:     string(kind),
		Title:    title,
		Message:  message,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to store staff notification")
		return
	}

	event := Event{
		NotificationID: row.ID,
		Audience:       AudienceStaff,
		Kind:           kind,
		Title:          title,
		Message:        message,
		CreatedAt:      row.CreatedAt,
	}
	staff, err := s.queries.ListStaffUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load staff recipients")
		return
	}
	for _, u := range staff {
		event.Recipients = append(event.Recipients, u.Email)
	}
	if len(event.Recipients) == 0 {
		return
	}

	s.deliver(ctx, event)
}

func (s *Service) deliver(ctx context.Context, event Event) {
	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		go func() {
			defer cancel()
			err := s.publisher.PublishJSON(pubCtx, RoutingKey(event.Kind), event)
			if err == nil {
				return
			}
			s.logger.Error().Err(err).Int64("notification_id", event.NotificationID).Msg("Failed to publish notification")
			s.sendEmails(pubCtx, event)
		}()
		return
	}
	s.sendEmails(ctx, event)
}

func (s *Service) sendEmails(ctx context.Context, event Event) {
	if s.sender == nil {
		return
	}
	msg := email.BuildNotificationEmail(s.clubName, event.RecipientName, event.Title, event.Message)
	for _, recipient := range event.Recipients {
		email.SendAsync(ctx, s.sender, recipient, msg, &s.logger)
	}
}
