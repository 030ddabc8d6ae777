package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pixdex/internal/logger"
	"github.com/custodia-labs/pixdex/internal/metrics"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in step with the library",
	Long: `Runs a sync pass, then watches the library and runs another pass
whenever photos are added or removed, and on the configured sync interval.
Runs until interrupted.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "address to serve /metrics on, e.g. :9090")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx := cmd.Context()
	if watchMetricsAddr != "" {
		srv, err := startMetricsServer(ctx, watchMetricsAddr)
		if err != nil {
			return err
		}
		cmd.Printf("Serving metrics on http://%s/metrics\n", srv.Addr)
		defer stopMetricsServer(srv)
	}

	cmd.Println("Watching library. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string) (*http.Server, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv, nil
}

func stopMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown: %v", err)
	}
}
