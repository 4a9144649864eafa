package httpstat

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jellydator/ttlcache/v3"

	im "github.com/statsprof/statsprof/internal/metrics"
	"github.com/statsprof/statsprof/metrics"
)

// CachingResolver caches host lookups for a bounded time and reports cache
// hits, misses, evictions, and size. Its DialContext can be assigned to an
// http.Transport so the cache fronts every connection attempt.
type CachingResolver struct {
	metrics metrics.Client
	cache   *ttlcache.Cache[string, []string]
	dialer  *net.Dialer

	// lookup is overridable in tests
	lookup func(ctx context.Context, host string) ([]string, error)
}

func NewCachingResolver(client metrics.Client, size int, ttl time.Duration) *CachingResolver {
	if client == nil {
		client = im.NewNoopMetricsClient()
	}

	c := ttlcache.New(
		ttlcache.WithCapacity[string, []string](uint64(size)),
		ttlcache.WithTTL[string, []string](ttl),
	)

	c.OnEviction(func(ctx context.Context, er ttlcache.EvictionReason, i *ttlcache.Item[string, []string]) {
		reason := ""
		switch er {
		case ttlcache.EvictionReasonExpired:
			reason = "expired"
		case ttlcache.EvictionReasonCapacityReached:
			reason = "capacity"
		case ttlcache.EvictionReasonDeleted:
			reason = "deleted"
		}

		client.Counter(DNSCacheEviction, metrics.Tags{TagEvictionReason: reason}, 1)
	})

	resolver := &net.Resolver{}

	return &CachingResolver{
		metrics: client,
		cache:   c,
		dialer:  &net.Dialer{Timeout: 30 * time.Second},
		lookup:  resolver.LookupHost,
	}
}

// LookupHost resolves host through the cache.
func (cr *CachingResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if item := cr.cache.Get(host); item != nil {
		cr.metrics.Counter(DNSCacheHit, metrics.Tags{TagDomain: host}, 1)
		return item.Value(), nil
	}

	cr.metrics.Counter(DNSCacheMiss, metrics.Tags{TagDomain: host}, 1)

	addrs, err := cr.lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", host, err)
	}

	cr.cache.Set(host, addrs, ttlcache.DefaultTTL)
	cr.metrics.Gauge(DNSCacheSize, metrics.Tags{}, int64(cr.cache.Len()))

	return addrs, nil
}

// DialContext dials addr, resolving its host through the cache. Literal IP
// addresses bypass the cache.
func (cr *CachingResolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("splitting address %s: %w", addr, err)
	}

	if net.ParseIP(host) != nil {
		return cr.dialer.DialContext(ctx, network, addr)
	}

	addrs, err := cr.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, a := range addrs {
		conn, err := cr.dialer.DialContext(ctx, network, net.JoinHostPort(a, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses resolved for %s", host)
	}

	return nil, lastErr
}

// StartEviction runs the cache's expiration loop until ctx is cancelled.
func (cr *CachingResolver) StartEviction(ctx context.Context) {
	go cr.cache.Start()

	<-ctx.Done()

	cr.cache.Stop()
}
