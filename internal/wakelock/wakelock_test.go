package wakelock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/aaronromeo/imappush/internal/wakelock"
)

func TestAcquireRelease(t *testing.T) {
	l := wakelock.New("INBOX")
	assert.False(t, l.Held())

	l.Acquire(time.Minute)
	l.Acquire(time.Minute)
	assert.True(t, l.Held())

	l.Release()
	assert.False(t, l.Held())

	// Not reference counted, and releasing twice is harmless.
	l.Release()
	assert.False(t, l.Held())
}

func TestHoldExpires(t *testing.T) {
	l := wakelock.New("INBOX")
	l.Acquire(20 * time.Millisecond)

	require.Eventually(t, func() bool { return !l.Held() }, time.Second, 5*time.Millisecond)
}

func TestAcquireExtendsHold(t *testing.T) {
	l := wakelock.New("INBOX")
	l.Acquire(30 * time.Millisecond)
	l.Acquire(time.Minute)

	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Held())
	l.Release()
}

func TestReleasedTimerDoesNotEndNextHold(t *testing.T) {
	l := wakelock.New("INBOX")
	l.Acquire(30 * time.Millisecond)
	l.Release()
	l.Acquire(time.Minute)

	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Held())
	l.Release()
}

func TestHoldsAreRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	l := wakelock.New("INBOX", wakelock.WithMeterProvider(provider))
	l.Acquire(time.Minute)
	l.Release()
	l.Acquire(10 * time.Millisecond)
	require.Eventually(t, func() bool { return !l.Held() }, time.Second, 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "imappush.wakelock.held" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			for _, dp := range hist.DataPoints {
				count += dp.Count
			}
		}
	}
	assert.Equal(t, uint64(2), count)
}
