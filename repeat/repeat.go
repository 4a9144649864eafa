// Package repeat runs an operation on a fixed interval until cancelled.
package repeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	goerrors "github.com/go-errors/errors"
)

type Options struct {
	Logger *slog.Logger

	Clock clock.Clock
}

var DefaultOptions Options = Options{
	Logger: slog.Default(),
	Clock:  clock.New(),
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
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

// Every runs fn immediately and then once per interval until ctx is
// cancelled, returning ctx.Err(). The loop is never terminated by fn:
// errors are logged and the next run happens on schedule; panics are
// recovered and logged with their stack.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context) error, opts ...Option) error {
	options := ApplyOptions(opts...)

	ticker := options.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		run(ctx, options.Logger, fn)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func run(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "iteration panicked", "panic", r, "stack", string(goerrors.Wrap(r, 2).Stack()))
		}
	}()

	if err := fn(ctx); err != nil {
		logger.ErrorContext(ctx, "iteration failed", "error", err)
	}
}
