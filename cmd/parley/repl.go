package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pario-ai/parley/pkg/chat"
	"github.com/pario-ai/parley/pkg/models"
	"github.com/pario-ai/parley/pkg/tracker"
)

const replHelp = `Commands:
  /new     start a new conversation
  /stats   show performance metrics
  /reset   clear cache and metrics
  /quit    exit
Ctrl-C cancels the answer in progress.`

func newREPLCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive streaming chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, rt.tracker)
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
				rt.log.Info("serving metrics", "addr", metricsAddr)
			}

			return runREPL(cmd.InOrStdin(), cmd.OutOrStdout(), rt.coord)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func serveMetrics(addr string, t *tracker.Tracker) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(tracker.NewCollector(t))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv
}

func runREPL(in io.Reader, out io.Writer, coord *chat.Coordinator) error {
	fmt.Fprintln(out, replHelp)

	var conversationID string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case "/new":
			conversationID = ""
			fmt.Fprintln(out, "started a new conversation")
			continue
		case "/stats":
			if err := printSnapshot(out, coord.Snapshot()); err != nil {
				return err
			}
			continue
		case "/reset":
			coord.Reset()
			fmt.Fprintln(out, "cache and metrics cleared")
			continue
		}

		if id := streamTurn(out, coord, line, conversationID); id != "" {
			conversationID = id
		}
	}
}

// streamTurn runs one streaming call. Interrupts cancel only this turn.
func streamTurn(out io.Writer, coord *chat.Coordinator, query, conversationID string) string {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var id string
	for u := range coord.Stream(ctx, models.ChatRequest{Query: query, ConversationID: conversationID}) {
		switch u.Kind {
		case models.UpdateMessage:
			fmt.Fprint(out, u.Text)
		case models.UpdateComplete:
			fmt.Fprintln(out)
			id = u.Result.ConversationID
		case models.UpdateError:
			fmt.Fprintf(out, "\nerror: %v\n", u.Err)
		}
	}
	if ctx.Err() != nil {
		fmt.Fprintln(out, "\n(cancelled)")
	}
	return id
}

func printSnapshot(out io.Writer, s models.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	fmt.Fprintf(w, "total requests\t%d\n", s.Metrics.TotalRequests)
	fmt.Fprintf(w, "successful\t%d\n", s.Metrics.SuccessfulRequests)
	fmt.Fprintf(w, "failed\t%d\n", s.Metrics.FailedRequests)
	fmt.Fprintf(w, "average latency\t%.1f ms\n", s.Metrics.AverageLatencyMs)
	fmt.Fprintf(w, "cache hits\t%d\n", s.Metrics.CacheHits)
	fmt.Fprintf(w, "cache misses\t%d\n", s.Metrics.CacheMisses)
	fmt.Fprintf(w, "rate limit hits\t%d\n", s.Metrics.RateLimitHits)
	fmt.Fprintf(w, "remaining requests\t%d\n", s.RemainingRequests)
	fmt.Fprintf(w, "cached answers\t%d\n", s.CacheSize)
	return w.Flush()
}
