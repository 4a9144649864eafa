package httpstat

// Metric names reported by this package. Underscores are substituted by the
// reporting client before transmission.
const (
	RequestExecTime  = "http_request_exec_time"
	RequestException = "http_request_exception"
	RequestRedirect  = "http_request_redirect"

	ConnectionQueuedTime = "http_connection_queued_time"
	ConnectionCreateTime = "http_connection_create_time"
	ConnectionReuse      = "http_connection_reuseconn"

	DNSResolveTime   = "http_dns_resolvehost_time"
	DNSCacheHit      = "http_dns_cache_hit"
	DNSCacheMiss     = "http_dns_cache_miss"
	DNSCacheEviction = "http_dns_cache_eviction"
	DNSCacheSize     = "http_dns_cache_size"

	ResponseBytes = "http_response_bytes"
)

// Tag names
const (
	// TagDomain carries the host the request was made against
	TagDomain = "domain"

	// TagExceptionClass carries the kind of a failed request's error
	TagExceptionClass = "exception_class"

	// TagEvictionReason carries why an entry left the DNS cache
	TagEvictionReason = "reason"
)
