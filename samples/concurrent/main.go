package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/statsprof/statsprof/httpstat"
	"github.com/statsprof/statsprof/metrics"
	"github.com/statsprof/statsprof/profile"
	"github.com/statsprof/statsprof/repeat"
	"github.com/statsprof/statsprof/samples"
)

// Issues both page fetches concurrently over one shared instrumented client,
// with DNS lookups cached and every connection lifecycle phase reported. All
// measurements carry a run tag identifying this process run.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := samples.NewMetricsClient()
	defer base.Close()

	stats := base.WithTags(metrics.Tags{"run": uuid.NewString()})

	p := profile.New(stats)

	resolver := httpstat.NewCachingResolver(stats, 128, 5*time.Minute)
	go resolver.StartEviction(ctx)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = resolver.DialContext

	httpClient := &http.Client{Timeout: 10 * time.Second}
	httpstat.InstrumentClient(httpClient, stats, httpstat.WithBase(transport))

	callBackends := profile.Wrap(p, "call_some_backends_exec_time", func(ctx context.Context) (string, error) {
		g, ctx := errgroup.WithContext(ctx)

		var pyResponse, mozResponse string

		g.Go(func() error {
			pyResponse = samples.GetResponseText(ctx, httpClient, stats, "https://www.python.org/")
			return nil
		})
		g.Go(func() error {
			mozResponse = samples.GetResponseText(ctx, httpClient, stats, "https://www.mozilla.org/en-US/")
			return nil
		})

		if err := g.Wait(); err != nil {
			return "", err
		}

		return fmt.Sprintf(
			"Py response piece: ...%s... , Moz response piece: ...%s...",
			samples.Snippet(pyResponse, 30),
			samples.Snippet(mozResponse, 30),
		), nil
	})

	err := repeat.Every(ctx, 3*time.Second, func(ctx context.Context) error {
		result, err := callBackends(ctx)
		if err != nil {
			return err
		}

		fmt.Println(result)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
