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

	"github.com/statsprof/statsprof/httpstat"
	"github.com/statsprof/statsprof/profile"
	"github.com/statsprof/statsprof/repeat"
	"github.com/statsprof/statsprof/samples"
)

// Fetches two public pages every few seconds, printing snippets of both
// bodies. Every request is timed and reported; request failures surface as a
// fallback result plus an exception counter, never as a crash.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := samples.NewMetricsClient()
	defer stats.Close()

	p := profile.New(stats)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	httpstat.InstrumentClient(httpClient, stats)

	callBackends := profile.Wrap(p, "call_python_and_mozilla_exec_time", func(ctx context.Context) (string, error) {
		// change a domain to python1 to see errors
		pyResponse := samples.GetResponseText(ctx, httpClient, stats, "https://www.python.org/")
		mozResponse := samples.GetResponseText(ctx, httpClient, stats, "https://www.mozilla.org/en-US/")

		return fmt.Sprintf(
			"Py response piece: %s... ,\nMoz response piece: %s...",
			samples.Snippet(pyResponse, 60),
			samples.Snippet(mozResponse, 60),
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
