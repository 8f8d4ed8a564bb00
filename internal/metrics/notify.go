package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// NotifyMetrics measures delivery of out-of-band notifications.
type NotifyMetrics struct {
	published       metric.Int64Counter
	publishDuration metric.Float64Histogram
	publishErrors   metric.Int64Counter
}

func NewNotifyMetrics(meter metric.Meter) (*NotifyMetrics, error) {
	nm := &NotifyMetrics{}

	var err error

	nm.published, err = meter.Int64Counter(
		"notify.messages.published",
		metric.WithDescription("Total number of notifications handed to a driver"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	nm.publishDuration, err = meter.Float64Histogram(
		"notify.message.publish_duration",
		metric.WithDescription("Time spent delivering a notification"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	nm.publishErrors, err = meter.Int64Counter(
		"notify.message.errors",
		metric.WithDescription("Total number of failed notification deliveries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return nm, nil
}

func (nm *NotifyMetrics) RecordPublish(ctx context.Context, driver, kind string, duration time.Duration, err error) {
	if nm == nil || nm.published == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("kind", kind),
	)

	nm.published.Add(ctx, 1, attrs)
	nm.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		nm.publishErrors.Add(ctx, 1, attrs)
	}
}
