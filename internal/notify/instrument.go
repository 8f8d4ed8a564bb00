package notify

import (
	"context"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
)

type instrumented struct {
	Notifier
	driver  string
	metrics *metrics.NotifyMetrics
}

// Instrument records the duration and outcome of every delivery made by n.
func Instrument(n Notifier, driver string, m *metrics.Metrics) Notifier {
	if m == nil || m.Notify == nil {
		return n
	}
	return &instrumented{
		Notifier: n,
		driver:   driver,
		metrics:  m.Notify,
	}
}

func (n *instrumented) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	start := time.Now()
	err := n.Notifier.NotifyPasswordReset(ctx, reset)
	n.metrics.RecordPublish(ctx, n.driver, "password_reset", time.Since(start), err)
	return err
}
