package telegraf

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/statsprof/statsprof/metrics"
)

type Options struct {
	// Address of the collector agent's socket listener
	Address string

	// Network is the transport to dial, "udp" or "tcp"
	Network string

	Logger *slog.Logger

	// Echo receives a human-readable copy of every reported measurement. Not
	// meant for machine parsing.
	Echo io.Writer

	// WriteTimeout bounds a single line write on connection-oriented
	// transports so reporting never blocks the caller.
	WriteTimeout time.Duration

	// Tags are added to every measurement reported by the client
	Tags metrics.Tags
}

var DefaultOptions Options = Options{
	Address:      "localhost:8094",
	Network:      "udp",
	Logger:       slog.Default(),
	Echo:         os.Stdout,
	WriteTimeout: time.Second,
}

type Option func(*Options)

func WithAddress(address string) Option {
	return func(o *Options) {
		o.Address = address
	}
}

func WithNetwork(network string) Option {
	return func(o *Options) {
		o.Network = network
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithEcho(w io.Writer) Option {
	return func(o *Options) {
		o.Echo = w
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = timeout
	}
}

func WithTags(tags metrics.Tags) Option {
	return func(o *Options) {
		o.Tags = tags
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
