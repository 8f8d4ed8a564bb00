package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes the reset link to the log. Meant for local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"email", reset.Email,
		"reset_link", reset.ResetLink,
		"expires_at", reset.ExpiresAt,
	)
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
