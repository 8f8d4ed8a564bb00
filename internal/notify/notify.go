// Package notify delivers password reset links out of band so the API never
// has to return reset tokens to the caller.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/config"
)

// PasswordReset is the event emitted when a reset token is issued.
type PasswordReset struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Token     string    `json:"token"`
	ResetLink string    `json:"reset_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Notifier interface {
	NotifyPasswordReset(ctx context.Context, reset PasswordReset) error
	Close() error
}

// New builds the notifier selected by cfg.Notify.Driver.
func New(cfg *config.Config, logger *slog.Logger) (Notifier, error) {
	switch cfg.Notify.Driver {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "nats":
		return NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Subject, logger)
	case "kafka":
		return NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	case "sendgrid":
		return NewSendGridNotifier(cfg.SendGrid, logger)
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
}

// ResetLink appends the token as a query parameter to base.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
