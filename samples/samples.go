package samples

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/statsprof/statsprof/httpstat"
	"github.com/statsprof/statsprof/metrics"
	"github.com/statsprof/statsprof/telegraf"
)

// NewMetricsClient builds the reporting client the samples share. The address
// matches the telegraf socket_listener the tutorial stack runs locally.
func NewMetricsClient() *telegraf.Client {
	return telegraf.New(telegraf.WithAddress("localhost:8094"))
}

// GetResponseText fetches url and returns its body. A failed request is
// converted into a fallback textual result instead of an error; the
// instrumented transport has already reported the exception counter for
// transport failures, and status failures are counted here.
func GetResponseText(ctx context.Context, c *http.Client, stats metrics.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("Exception occured: %v", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Sprintf("Exception occured: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		stats.Counter(httpstat.RequestException, metrics.Tags{
			httpstat.TagDomain:         req.URL.Hostname(),
			httpstat.TagExceptionClass: "http_status",
		}, 1)

		return fmt.Sprintf("Exception occured: %s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Exception occured: %v", err)
	}

	return string(body)
}

// Snippet returns the first n characters of s with surrounding whitespace
// trimmed, for printing readable response pieces.
func Snippet(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}

	return strings.TrimSpace(s)
}
