package httpstat

import (
	"context"
	"net/http/httptrace"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/statsprof/statsprof/metrics"
)

// requestTrace holds the per-attempt state visible to the httptrace hooks.
// Each instance is owned by a single request attempt and never shared.
type requestTrace struct {
	metrics metrics.Client
	clock   clock.Clock
	tags    metrics.Tags

	getConn      time.Time
	dnsStart     time.Time
	connectStart time.Time
}

func withClientTrace(ctx context.Context, rt *requestTrace) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GetConn: func(hostPort string) {
			rt.getConn = rt.clock.Now()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if !rt.getConn.IsZero() {
				rt.metrics.Distribution(ConnectionQueuedTime, rt.tags, metrics.Milliseconds(rt.clock.Since(rt.getConn)))
			}

			if info.Reused {
				rt.metrics.Counter(ConnectionReuse, rt.tags, 1)
			}
		},
		DNSStart: func(httptrace.DNSStartInfo) {
			rt.dnsStart = rt.clock.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err == nil && !rt.dnsStart.IsZero() {
				rt.metrics.Distribution(DNSResolveTime, rt.tags, metrics.Milliseconds(rt.clock.Since(rt.dnsStart)))
			}
		},
		ConnectStart: func(network, addr string) {
			// called once per address attempted; keep the most recent
			rt.connectStart = rt.clock.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil && !rt.connectStart.IsZero() {
				rt.metrics.Distribution(ConnectionCreateTime, rt.tags, metrics.Milliseconds(rt.clock.Since(rt.connectStart)))
			}
		},
	})
}
