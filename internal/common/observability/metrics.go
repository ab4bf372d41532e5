package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	saveCounter   otelmetric.Int64Counter
	saveDuration  otelmetric.Float64Histogram
	genCounter    otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	saveCounter, _ := meter.Int64Counter(
		"saves.processed",
		otelmetric.WithDescription("Number of autosave attempts processed"),
	)

	saveDuration, _ := meter.Float64Histogram(
		"saves.duration",
		otelmetric.WithDescription("Autosave attempt duration"),
		otelmetric.WithUnit("ms"),
	)

	genCounter, _ := meter.Int64Counter(
		"generations.processed",
		otelmetric.WithDescription("Number of generation pipeline runs"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		saveCounter:   saveCounter,
		saveDuration:  saveDuration,
		genCounter:    genCounter,
	}
}

func (o *Observability) RecordSave(ctx context.Context, status string) {
	if o.saveCounter != nil {
		o.saveCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordSaveDuration(ctx context.Context, duration time.Duration, status string) {
	if o.saveDuration != nil {
		o.saveDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordGeneration(ctx context.Context, status string) {
	if o.genCounter != nil {
		o.genCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
