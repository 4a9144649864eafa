package httpstat

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	// Base is the RoundTripper actually performing requests. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	// TracerProvider records one client span per request when set to a real
	// provider. The default provider records nothing.
	TracerProvider trace.TracerProvider

	Clock clock.Clock
}

var DefaultOptions Options = Options{
	Base:           http.DefaultTransport,
	TracerProvider: trace.NewNoopTracerProvider(),
	Clock:          clock.New(),
}

type Option func(*Options)

func WithBase(base http.RoundTripper) Option {
	return func(o *Options) {
		o.Base = base
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

func ApplyOptions(opts ...Option) Options {
	options := DefaultOptions

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}
