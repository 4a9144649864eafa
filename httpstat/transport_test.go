package httpstat

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	im "github.com/statsprof/statsprof/internal/metrics"
)

func get(t *testing.T, c *http.Client, url string) string {
	t.Helper()

	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func TestTransportReportsRequestTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	rec := im.NewRecordingClient()
	c := &http.Client{Transport: NewTransport(rec)}

	body := get(t, c, srv.URL)
	require.Equal(t, "hello", body)

	t.Run("one exec time measurement per request", func(t *testing.T) {
		timings := rec.ByName(RequestExecTime)
		require.Len(t, timings, 1)
		require.Equal(t, im.KindDistribution, timings[0].Kind)
		require.GreaterOrEqual(t, timings[0].Value, float64(0))
		require.Equal(t, "127.0.0.1", timings[0].Tags[TagDomain])
	})

	t.Run("response bytes reported once", func(t *testing.T) {
		bytes := rec.ByName(ResponseBytes)
		require.Len(t, bytes, 1)
		require.Equal(t, float64(len("hello")), bytes[0].Value)
	})

	t.Run("no exception counter on success", func(t *testing.T) {
		require.Empty(t, rec.ByName(RequestException))
	})
}

func TestTransportReportsExceptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := im.NewRecordingClient()
	c := &http.Client{Transport: NewTransport(rec)}

	_, err := c.Get(url)
	require.Error(t, err)

	t.Run("exception counter tagged with the failure kind", func(t *testing.T) {
		exceptions := rec.ByName(RequestException)
		require.Len(t, exceptions, 1)
		require.Equal(t, im.KindCounter, exceptions[0].Kind)
		require.Equal(t, float64(1), exceptions[0].Value)
		require.Equal(t, "127.0.0.1", exceptions[0].Tags[TagDomain])
		require.Equal(t, "net.OpError", exceptions[0].Tags[TagExceptionClass])
	})

	t.Run("exec time suppressed on the error path", func(t *testing.T) {
		require.Empty(t, rec.ByName(RequestExecTime))
	})
}

func TestTransportConnectionMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := im.NewRecordingClient()
	c := &http.Client{Transport: NewTransport(rec)}

	// first request dials, second reuses the kept-alive connection
	get(t, c, srv.URL)
	get(t, c, srv.URL)

	require.NotEmpty(t, rec.ByName(ConnectionCreateTime))
	require.NotEmpty(t, rec.ByName(ConnectionQueuedTime))
	require.NotEmpty(t, rec.ByName(ConnectionReuse))
	require.Len(t, rec.ByName(RequestExecTime), 2)
}

func TestInstrumentClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/target", http.StatusFound)
	})
	mux.HandleFunc("/target", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec := im.NewRecordingClient()
	c := srv.Client()
	InstrumentClient(c, rec)

	body := get(t, c, srv.URL)
	require.Equal(t, "landed", body)

	t.Run("redirects counted", func(t *testing.T) {
		redirects := rec.ByName(RequestRedirect)
		require.Len(t, redirects, 1)
		require.Equal(t, "127.0.0.1", redirects[0].Tags[TagDomain])
	})

	t.Run("each hop timed", func(t *testing.T) {
		require.Len(t, rec.ByName(RequestExecTime), 2)
	})
}

func TestInstrumentClientKeepsExistingTransport(t *testing.T) {
	var sawRequest bool
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		sawRequest = true
		return http.DefaultTransport.RoundTrip(req)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := im.NewRecordingClient()
	c := &http.Client{Transport: base}
	InstrumentClient(c, rec)

	get(t, c, srv.URL)

	require.True(t, sawRequest, "existing transport must still perform the request")
	require.Len(t, rec.ByName(RequestExecTime), 1)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
