package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyPasswordReset(context.Context, notify.PasswordReset) error {
	n.calls++
	return errors.New("broker unavailable")
}

func (n *failingNotifier) Close() error { return nil }

func TestInstrument(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := metrics.New(provider.Meter("test"))
	require.NoError(t, err)

	inner := &failingNotifier{}
	n := notify.Instrument(inner, "kafka", m)
	assert.Error(t, n.NotifyPasswordReset(context.Background(), sampleReset()))
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, n.Close())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), totals["notify.messages.published"])
	assert.Equal(t, int64(1), totals["notify.message.errors"])
}

func TestInstrument_MockMetricsPassThrough(t *testing.T) {
	inner := &failingNotifier{}
	assert.Same(t, notify.Notifier(inner), notify.Instrument(inner, "log", metrics.NewMock()))
}
