package telegraf

import (
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statsprof/statsprof/metrics"
)

// Client reports measurements to a local Telegraf agent as line-protocol text
// over a UDP or TCP socket. Delivery is best-effort: transport failures are
// logged and dropped, never surfaced to the caller. A Client may be shared
// process-wide; a single line write requires no synchronization beyond the
// shared socket's own.
type Client struct {
	options *Options
	logger  *slog.Logger
	tags    metrics.Tags
	sock    *socket
}

var _ metrics.Client = (*Client)(nil)

func New(opts ...Option) *Client {
	options := ApplyOptions(opts...)

	b := &backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 100,
		MaxInterval:         time.Second * 30,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      0, // keep retrying for the lifetime of the client
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return &Client{
		options: &options,
		logger:  options.Logger,
		tags:    options.Tags,
		sock: &socket{
			network:      options.Network,
			address:      options.Address,
			writeTimeout: options.WriteTimeout,
			redial:       b,
		},
	}
}

func (c *Client) Counter(name string, tags metrics.Tags, value int64) {
	c.send(name, tags, float64(value))
}

func (c *Client) Distribution(name string, tags metrics.Tags, value float64) {
	c.send(name, tags, value)
}

func (c *Client) Gauge(name string, tags metrics.Tags, value int64) {
	c.send(name, tags, float64(value))
}

func (c *Client) Timing(name string, tags metrics.Tags, duration time.Duration) {
	c.send(name, tags, metrics.Milliseconds(duration))
}

// WithTags returns a client that adds the given tags to every measurement.
// The derived client shares the underlying socket.
func (c *Client) WithTags(tags metrics.Tags) metrics.Client {
	return &Client{
		options: c.options,
		logger:  c.logger,
		tags:    mergeTags(c.tags, tags),
		sock:    c.sock,
	}
}

// Close releases the underlying socket. Reporting after Close redials.
func (c *Client) Close() error {
	return c.sock.close()
}

func (c *Client) send(name string, tags metrics.Tags, value float64) {
	merged := mergeTags(c.tags, tags)

	if err := c.sock.write([]byte(EncodeLine(name, merged, value))); err != nil {
		c.logger.Debug("reporting stats failed", "name", name, "error", err)
	}

	fmt.Fprintf(c.options.Echo, "Reported stats: %s=%s, tags=%s\n", name, formatValue(value), formatTags(merged))
}

func mergeTags(base, tags metrics.Tags) metrics.Tags {
	if len(base) == 0 {
		return tags
	}

	merged := make(metrics.Tags, len(base)+len(tags))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	return merged
}

func formatTags(tags metrics.Tags) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, tags[k]))
	}

	return "{" + strings.Join(pairs, ", ") + "}"
}

// socket is the shared transport handle. It dials lazily and backs off on
// dial or write failure instead of failing every subsequent send immediately.
type socket struct {
	network      string
	address      string
	writeTimeout time.Duration

	mu       sync.Mutex
	conn     net.Conn
	redial   *backoff.ExponentialBackOff
	nextDial time.Time
}

func (s *socket) write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if time.Now().Before(s.nextDial) {
			return fmt.Errorf("transport %s/%s unavailable, redial pending", s.network, s.address)
		}

		conn, err := net.DialTimeout(s.network, s.address, s.writeTimeout)
		if err != nil {
			s.deferRedial()
			return fmt.Errorf("dialing collector agent: %w", err)
		}

		s.redial.Reset()
		s.conn = conn
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))

	if _, err := s.conn.Write(line); err != nil {
		s.conn.Close()
		s.conn = nil
		s.deferRedial()
		return fmt.Errorf("writing to collector agent: %w", err)
	}

	return nil
}

func (s *socket) deferRedial() {
	next := s.redial.NextBackOff()
	if next == backoff.Stop {
		s.redial.Reset()
		next = s.redial.NextBackOff()
	}

	s.nextDial = time.Now().Add(next)
}

func (s *socket) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	return err
}
