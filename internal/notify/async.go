package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type async struct {
	Notifier
	timeout time.Duration
	logger  *slog.Logger
	pending sync.WaitGroup
}

// Async hands every delivery to a goroutine and returns immediately, so a
// request that triggers a notification takes the same time whether or not
// anything is sent. Each delivery runs on a context detached from the
// request and bounded by timeout. Close waits for pending deliveries before
// closing n.
func Async(n Notifier, timeout time.Duration, logger *slog.Logger) Notifier {
	return &async{
		Notifier: n,
		timeout:  timeout,
		logger:   logger,
	}
}

func (n *async) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.Notifier.NotifyPasswordReset(ctx, reset); err != nil {
			n.logger.ErrorContext(ctx, "failed to deliver password reset",
				"user_id", reset.UserID,
				"error", err,
			)
		}
	}()
	return nil
}

func (n *async) Close() error {
	n.pending.Wait()
	return n.Notifier.Close()
}
