package push

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/aaronromeo/imappush/push"

type metrics struct {
	resyncs  metric.Int64Counter
	idles    metric.Int64Counter
	failures metric.Int64Counter
	disabled metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) *metrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; the returned
	// instruments are usable no-ops in that case.
	resyncs, _ := meter.Int64Counter("imappush.push.resyncs",
		metric.WithDescription("Resync signals emitted to the receiver"))
	idles, _ := meter.Int64Counter("imappush.push.idle_sessions",
		metric.WithDescription("IDLE commands that completed without error"))
	failures, _ := meter.Int64Counter("imappush.push.failures",
		metric.WithDescription("Transient failures handled with backoff"))
	disabled, _ := meter.Int64Counter("imappush.push.disabled",
		metric.WithDescription("Folder pushers disabled after too many failures"))

	return &metrics{
		resyncs:  resyncs,
		idles:    idles,
		failures: failures,
		disabled: disabled,
	}
}

func folderAttr(folder string) metric.AddOption {
	return metric.WithAttributes(attribute.String("folder", folder))
}

func (m *metrics) resync(ctx context.Context, folder string) {
	m.resyncs.Add(ctx, 1, folderAttr(folder))
}

func (m *metrics) idle(ctx context.Context, folder string) {
	m.idles.Add(ctx, 1, folderAttr(folder))
}

func (m *metrics) failure(ctx context.Context, folder string) {
	m.failures.Add(ctx, 1, folderAttr(folder))
}

func (m *metrics) disable(ctx context.Context, folder string) {
	m.disabled.Add(ctx, 1, folderAttr(folder))
}
