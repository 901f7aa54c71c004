// Package telemetry настраивает OpenTelemetry (трейсы и метрики через OTLP/HTTP)
// и предоставляет инструменты, которыми пользуются хранилище и сервисы расчетов.
package telemetry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Dosada05/tournament-wallet"

type Config struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
}

// Setup регистрирует глобальные провайдеры. Без endpoint остаются no-op провайдеры
// по умолчанию, и возвращаемая функция завершения ничего не делает.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Instruments - счетчики денежных операций и конфликтов хранилища.
type Instruments struct {
	SettlementsApplied   metric.Int64Counter
	StoreConflicts       metric.Int64Counter
	StoreRetriesExceeded metric.Int64Counter
	NotificationFailures metric.Int64Counter
	LedgerDrift          metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	instruments     *Instruments
	noopMeter       = noop.NewMeterProvider().Meter(instrumentationName)
)

// Metrics лениво создает инструменты из глобального MeterProvider.
// Ошибки создания не критичны: вместо сломанного инструмента используется no-op.
func Metrics() *Instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		instruments = &Instruments{
			SettlementsApplied:   counter(meter, "wallet.settlements.applied", "Committed money movements by kind"),
			StoreConflicts:       counter(meter, "ledger.store.conflicts", "Optimistic transaction conflicts that triggered a retry"),
			StoreRetriesExceeded: counter(meter, "ledger.store.retries_exhausted", "Atomic operations that ran out of retry attempts"),
			NotificationFailures: counter(meter, "notifications.failures", "Notifications that could not be delivered"),
			LedgerDrift:          counter(meter, "wallet.ledger.drift", "Wallets whose balance differs from the transaction sum"),
		}
	})
	return instruments
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		c, _ = noopMeter.Int64Counter(name)
	}
	return c
}
