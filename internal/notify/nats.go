package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes PasswordReset events as JSON to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewNATSNotifier(url string, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("student-profile"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS notifier initialized", "url", url, "subject", subject)

	return &NATSNotifier{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

func (n *NATSNotifier) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	payload, err := json.Marshal(reset)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal password reset event", "error", err)
		return err
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.logger.ErrorContext(ctx, "failed to publish password reset event", "error", err)
		return err
	}

	n.logger.InfoContext(ctx, "password reset event published", "subject", n.subject, "user_id", reset.UserID)
	return nil
}

func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}
