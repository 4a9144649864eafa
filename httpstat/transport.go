package httpstat

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	im "github.com/statsprof/statsprof/internal/metrics"
	"github.com/statsprof/statsprof/metrics"
	"github.com/statsprof/statsprof/profile"
)

// Transport is an http.RoundTripper that reports one measurement per request
// attempt: the request's wall time on success, or an exception counter tagged
// with the failure kind on error. Connection lifecycle metrics are reported
// through net/http/httptrace hooks. Monitoring is best-effort and never
// changes the outcome of a request.
type Transport struct {
	base    http.RoundTripper
	metrics metrics.Client
	clock   clock.Clock
	tracer  trace.Tracer
}

var _ http.RoundTripper = (*Transport)(nil)

func NewTransport(client metrics.Client, opts ...Option) *Transport {
	return newTransport(client, ApplyOptions(opts...))
}

func newTransport(client metrics.Client, options Options) *Transport {
	if client == nil {
		client = im.NewNoopMetricsClient()
	}

	return &Transport{
		base:    options.Base,
		metrics: client,
		clock:   options.Clock,
		tracer:  options.TracerProvider.Tracer("github.com/statsprof/statsprof/httpstat"),
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	domain := req.URL.Hostname()
	tags := metrics.Tags{TagDomain: domain}

	ctx, span := t.tracer.Start(req.Context(), fmt.Sprintf("HTTP %s", req.Method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	// one requestTrace per attempt, threaded through the lifecycle hooks
	rt := &requestTrace{metrics: t.metrics, clock: t.clock, tags: tags}
	ctx = withClientTrace(ctx, rt)

	start := t.clock.Now()
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		t.metrics.Counter(RequestException, metrics.Tags{
			TagDomain:         domain,
			TagExceptionClass: profile.ErrorKind(err),
		}, 1)

		return nil, err
	}

	t.metrics.Distribution(RequestExecTime, tags, metrics.Milliseconds(t.clock.Since(start)))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	resp.Body = &countingBody{body: resp.Body, metrics: t.metrics, tags: tags}

	return resp, nil
}

// InstrumentClient installs a reporting Transport on c, wrapping its existing
// transport, and counts redirects through the client's redirect hook.
func InstrumentClient(c *http.Client, client metrics.Client, opts ...Option) {
	if client == nil {
		client = im.NewNoopMetricsClient()
	}

	options := ApplyOptions(opts...)
	if c.Transport != nil {
		options.Base = c.Transport
	}

	c.Transport = newTransport(client, options)

	prev := c.CheckRedirect
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		client.Counter(RequestRedirect, metrics.Tags{TagDomain: req.URL.Hostname()}, 1)

		if prev != nil {
			return prev(req, via)
		}
		return nil
	}
}

// countingBody reports the total number of response body bytes read, once,
// when the body is exhausted or closed.
type countingBody struct {
	body    io.ReadCloser
	metrics metrics.Client
	tags    metrics.Tags

	mu   sync.Mutex
	read int64
	once sync.Once
}

var _ io.ReadCloser = (*countingBody)(nil)

func (cb *countingBody) Read(p []byte) (int, error) {
	n, err := cb.body.Read(p)

	cb.mu.Lock()
	cb.read += int64(n)
	cb.mu.Unlock()

	if err == io.EOF {
		cb.report()
	}

	return n, err
}

func (cb *countingBody) Close() error {
	cb.report()
	return cb.body.Close()
}

func (cb *countingBody) report() {
	cb.once.Do(func() {
		cb.mu.Lock()
		read := cb.read
		cb.mu.Unlock()

		cb.metrics.Counter(ResponseBytes, cb.tags, read)
	})
}
