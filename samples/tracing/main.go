package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/statsprof/statsprof/httpstat"
	"github.com/statsprof/statsprof/profile"
	"github.com/statsprof/statsprof/repeat"
	"github.com/statsprof/statsprof/samples"
)

// Same fetch loop as samples/fetch, with a client span recorded per request
// in addition to the reported measurements. Spans go to stdout and to a local
// OTLP collector.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("statsprof sample"),
		semconv.ServiceVersionKey.String("v0.1.0"),
		attribute.String("environment", "sample"),
	)

	stdoutexp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatal(err)
	}

	oclient := otlptracehttp.NewClient(otlptracehttp.WithEndpoint("localhost:4318"), otlptracehttp.WithInsecure())
	exp, err := otlptrace.New(ctx, oclient)
	if err != nil {
		log.Fatal(err)
	}

	tp := trace.NewTracerProvider(
		trace.WithSyncer(stdoutexp),
		trace.WithBatcher(exp),
		trace.WithResource(r),
	)
	defer tp.Shutdown(context.Background())

	otel.SetTracerProvider(tp)

	stats := samples.NewMetricsClient()
	defer stats.Close()

	p := profile.New(stats)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	httpstat.InstrumentClient(httpClient, stats, httpstat.WithTracerProvider(tp))

	callBackends := profile.Wrap(p, "call_python_and_mozilla_exec_time", func(ctx context.Context) (string, error) {
		pyResponse := samples.GetResponseText(ctx, httpClient, stats, "https://www.python.org/")
		mozResponse := samples.GetResponseText(ctx, httpClient, stats, "https://www.mozilla.org/en-US/")

		return fmt.Sprintf(
			"Py response piece: %s... ,\nMoz response piece: %s...",
			samples.Snippet(pyResponse, 60),
			samples.Snippet(mozResponse, 60),
		), nil
	})

	err = repeat.Every(ctx, 3*time.Second, func(ctx context.Context) error {
		result, err := callBackends(ctx)
		if err != nil {
			return err
		}

		fmt.Println(result)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
