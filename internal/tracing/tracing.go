// Package tracing wires OpenTelemetry for the code sequencer. When tracing is
// disabled nothing is installed and otel's global no-op provider stays in place.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
)

// InstrumentationName is the tracer name used by codeseq packages.
const InstrumentationName = "github.com/aimhigh31/work-ten-sub018"

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

var (
	providerOnce sync.Once
	providerErr  error
	shutdown     ShutdownFunc = noopShutdown
)

// Init installs a global tracer provider backed by the stdout exporter.
// Output is "stdout", "stderr" or a file path. Only the first call has an effect.
func Init(cfg config.TracingConfig, serviceVersion string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	providerOnce.Do(func() {
		w, closer, err := openOutput(cfg.Output)
		if err != nil {
			providerErr = err
			return
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			providerErr = fmt.Errorf("failed to create trace exporter: %w", err)
			return
		}
		tp, err := newProvider(cfg.ServiceName, serviceVersion, exporter)
		if err != nil {
			providerErr = err
			return
		}
		otel.SetTracerProvider(tp)
		shutdown = func(ctx context.Context) error {
			err := tp.Shutdown(ctx)
			if closer != nil {
				_ = closer.Close()
			}
			return err
		}
	})
	return shutdown, providerErr
}

func newProvider(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	if serviceName == "" {
		serviceName = "codeseq"
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace output %s: %w", output, err)
		}
		return f, f, nil
	}
}

// Tracer returns the codeseq tracer from the current global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// End records err on span (if any) and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
