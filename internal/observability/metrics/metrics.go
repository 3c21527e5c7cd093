// Package metrics exposes application-level OpenTelemetry instruments for
// the exchange engine.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the exchange engine's instruments.
type Metrics struct {
	evaluations metric.Int64Counter
	applies     metric.Int64Counter
	rejections  metric.Int64Counter
	clears      metric.Int64Counter
	conflicts   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "entitlex"
	}
	meter := provider.Meter(name)

	evaluations, err := meter.Int64Counter("entitlex_exchange_evaluations_total")
	if err != nil {
		return nil, err
	}
	applies, err := meter.Int64Counter("entitlex_exchange_applies_total")
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("entitlex_exchange_rejections_total")
	if err != nil {
		return nil, err
	}
	clears, err := meter.Int64Counter("entitlex_exchange_clears_total")
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("entitlex_exchange_conflicts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		evaluations: evaluations,
		applies:     applies,
		rejections:  rejections,
		clears:      clears,
		conflicts:   conflicts,
	}, nil
}

func (m *Metrics) RecordEvaluation(ctx context.Context, admissible bool) {
	if m == nil {
		return
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("admissible", admissible)))
}

func (m *Metrics) RecordApply(ctx context.Context) {
	if m == nil {
		return
	}
	m.applies.Add(ctx, 1)
}

func (m *Metrics) RecordRejection(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *Metrics) RecordClear(ctx context.Context) {
	if m == nil {
		return
	}
	m.clears.Add(ctx, 1)
}

func (m *Metrics) RecordConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch protocol {
	case "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter protocol %q", protocol)
	}
}
