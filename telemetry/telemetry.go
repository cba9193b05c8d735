// Package telemetry bootstraps OpenTelemetry tracing for programs embedding
// the API client. Until Initialize succeeds every span is a no-op, so
// instrumented packages can call Tracer unconditionally.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkforge/apiclient/envutil"
	"github.com/linkforge/apiclient/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans created by this module.
const InstrumentationName = "github.com/linkforge/apiclient"

const (
	defaultServiceVersion = "dev"
	defaultTimeout        = 5 * time.Second
)

// mu guards tracerProvider.
var mu sync.Mutex //nolint:gochecknoglobals

var tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	Timeout        time.Duration
	SampleRatio    float64
}

// LoadConfigFromEnv reads the tracing configuration:
//
//   - OTEL_ENABLED (default: false)
//   - OTEL_SERVICE_NAME (default: the logging subsystem)
//   - OTEL_SERVICE_VERSION (default: dev)
//   - OTEL_EXPORTER_OTLP_TRACES_ENDPOINT
//   - OTEL_EXPORTER_OTLP_TRACES_TIMEOUT (default: 5s)
//   - OTEL_TRACES_SAMPLER_PERCENT (0-100, default: 100)
func LoadConfigFromEnv(runningEnv string) (*Config, error) {
	svcName, err := envutil.String("OTEL_SERVICE_NAME",
		envutil.Default(logger.GetSubsystem(context.Background()))).
		Value()
	if err != nil {
		return nil, err
	}

	svcVersion, err := envutil.String("OTEL_SERVICE_VERSION",
		envutil.Default(defaultServiceVersion)).
		Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT",
		envutil.Default(defaultTimeout)).
		Value()
	if err != nil {
		return nil, err
	}

	percent, err := envutil.Int("OTEL_TRACES_SAMPLER_PERCENT",
		envutil.Default(100),
		envutil.Validate(func(p int) error {
			if p < 0 || p > 100 {
				return fmt.Errorf("%w: sample percent %d outside 0-100", envutil.ErrBadEnvVar, p)
			}

			return nil
		})).
		Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServiceName:    svcName,
		ServiceVersion: svcVersion,
		Environment:    runningEnv,
		Endpoint:       envutil.String("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT").ValueOrElse(""),
		Enabled:        envutil.Bool("OTEL_ENABLED", envutil.Default(false)).ValueOrElse(false),
		Timeout:        timeout,
		SampleRatio:    float64(percent) / 100, //nolint:mnd
	}, nil
}

// Initialize installs a global tracer provider exporting over OTLP/HTTP.
// It does nothing when tracing is disabled or no endpoint is configured.
func Initialize(ctx context.Context, config *Config) error {
	log := logger.Get(ctx)

	if config == nil || !config.Enabled {
		log.Debug("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		log.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))),
	)

	mu.Lock()
	tracerProvider = provider
	mu.Unlock()

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

// Tracer returns the module's tracer from the global provider.
func Tracer() trace.Tracer { //nolint:ireturn
	return otel.Tracer(InstrumentationName)
}

// Shutdown flushes and stops the tracer provider installed by Initialize.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	provider := tracerProvider
	tracerProvider = nil
	mu.Unlock()

	if provider == nil {
		return nil
	}

	logger.Get(ctx).Debug("Shutting down OpenTelemetry tracer provider")

	return provider.Shutdown(ctx)
}
