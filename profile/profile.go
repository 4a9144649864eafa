package profile

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	im "github.com/statsprof/statsprof/internal/metrics"
	"github.com/statsprof/statsprof/metrics"
)

// ExecTimeSuffix is appended to an operation's identifier to derive the
// metric name for its execution time.
const ExecTimeSuffix = "_exec_time"

// Profiler measures the wall-clock duration of units of work and reports each
// attempt as one distribution measurement in whole milliseconds. Durations are
// monotonic-clock derived, so system clock adjustments never affect them.
//
// The profiler never catches errors from the measured work and never retries;
// the measurement is emitted before an error or panic reaches the caller.
type Profiler struct {
	client          metrics.Client
	clock           clock.Clock
	partialOnCancel bool
}

type Option func(*Profiler)

func WithClock(c clock.Clock) Option {
	return func(p *Profiler) {
		p.clock = c
	}
}

// WithPartialOnCancel reports the partial duration of an attempt whose
// context was cancelled before it completed. By default cancelled attempts
// produce no measurement.
func WithPartialOnCancel() Option {
	return func(p *Profiler) {
		p.partialOnCancel = true
	}
}

func New(client metrics.Client, opts ...Option) *Profiler {
	if client == nil {
		client = im.NewNoopMetricsClient()
	}

	p := &Profiler{
		client: client,
		clock:  clock.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start begins a timing scope for the named operation. The returned stop
// function emits exactly one measurement named <operation>_exec_time; calling
// it more than once has no further effect. Intended for use with defer:
//
//	defer p.Start(ctx, "block", nil)()
func (p *Profiler) Start(ctx context.Context, operation string, tags metrics.Tags) func() {
	return p.StartMetric(ctx, operation+ExecTimeSuffix, tags)
}

// StartMetric is Start with a caller-supplied metric name, no suffix applied.
func (p *Profiler) StartMetric(ctx context.Context, metric string, tags metrics.Tags) func() {
	start := p.clock.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			if ctx != nil && ctx.Err() != nil && !p.partialOnCancel {
				// attempt was cancelled, not merely failed
				return
			}

			p.client.Distribution(metric, tags, metrics.Milliseconds(p.clock.Since(start)))
		})
	}
}

// Do runs fn inside a timing scope. The measurement is emitted on every exit
// path, before a returned error or a panic reaches the caller. The reported
// value is total wall time: time fn spends blocked on I/O, channels, or
// spawned goroutines is included.
func (p *Profiler) Do(ctx context.Context, operation string, tags metrics.Tags, fn func(context.Context) error) error {
	defer p.Start(ctx, operation, tags)()
	return fn(ctx)
}

// Exception reports a counter of one for a failed attempt, tagged with the
// kind of the failure under "exception_class".
func (p *Profiler) Exception(name string, err error, tags metrics.Tags) {
	merged := make(metrics.Tags, len(tags)+1)
	for k, v := range tags {
		merged[k] = v
	}
	merged["exception_class"] = ErrorKind(err)

	p.client.Counter(name, merged, 1)
}

// Wrap returns a function that times every invocation of fn. When metric is
// empty the name is derived from fn's name plus the "_exec_time" suffix;
// otherwise metric is used as the full metric name. The wrapped function
// behaves exactly like fn does.
func Wrap[T any](p *Profiler, metric string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	if metric == "" {
		metric = operationName(fn) + ExecTimeSuffix
	}

	return func(ctx context.Context) (T, error) {
		defer p.StartMetric(ctx, metric, nil)()
		return fn(ctx)
	}
}

// WrapFunc is Wrap for functions without a result.
func WrapFunc(p *Profiler, metric string, fn func(context.Context) error) func(context.Context) error {
	if metric == "" {
		metric = operationName(fn) + ExecTimeSuffix
	}

	return func(ctx context.Context) error {
		defer p.StartMetric(ctx, metric, nil)()
		return fn(ctx)
	}
}

// operationName resolves fn's identifier, without package path qualification.
func operationName(fn any) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()

	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}

	// bound methods carry an -fm suffix
	return strings.TrimSuffix(name, "-fm")
}

// ErrorKind names the kind of a failure for use as a tag value. Timeouts are
// reported as "timeout"; other errors report their concrete type, unwrapped
// from url.Error so HTTP client failures stay distinguishable.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		err = ue.Err
	}

	kind := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if kind == "errors.errorString" || kind == "fmt.wrapError" {
		return "error"
	}

	return kind
}
