package metrics

import "time"

// Tags are key/value labels attached to a measurement for filtering and
// grouping downstream. Keys are unique within a measurement; ordering does
// not matter.
type Tags map[string]string

// Client reports measurements to a metrics backend. Implementations are
// best-effort: reporting never blocks the caller beyond a local write and
// never surfaces transport errors.
type Client interface {
	Counter(name string, tags Tags, value int64)

	Distribution(name string, tags Tags, value float64)

	Gauge(name string, tags Tags, value int64)

	Timing(name string, tags Tags, duration time.Duration)

	// WithTags returns a client that adds the given tags to every measurement
	WithTags(tags Tags) Client
}
