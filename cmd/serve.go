package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lotworks/vinvalue/internal/valuation"
	"github.com/lotworks/vinvalue/internal/vehicledata"
)

var servePort int

// batchRunner values a parsed batch; swapped out in handler tests.
type batchRunner func(ctx context.Context, records []vehicledata.Record, opts valuation.Options) *valuation.BatchResult

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the batch valuation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := func(ctx context.Context, records []vehicledata.Record, opts valuation.Options) *valuation.BatchResult {
			quota, factory := newClientFactory()
			return valuation.NewPipeline(factory, quota, opts).Run(ctx, records)
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.Handle("GET /metrics", promhttp.Handler())

		mux.HandleFunc("POST /", handleBatch(runner))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownServer drains in-flight requests on a fresh timeout context. The
// signal context is already cancelled by the time shutdown starts, so it
// cannot be used for the drain.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

// handleBatch accepts a CSV inventory feed (default) or JSON vehicle records
// and runs them through the pipeline. The response is always 200 with
// per-record errors embedded; only an unparsable body is a request failure.
func handleBatch(run batchRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, _ := strconv.Atoi(q.Get("limit"))
		level := cfg.Batch.ValidationLevel
		if v := q.Get("validation"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= vehicledata.LevelIdentity && n <= vehicledata.LevelOptions {
				level = n
			}
		}
		report := strings.EqualFold(q.Get("report"), "Y")
		prices := !strings.EqualFold(q.Get("prices"), "N")

		var (
			records []vehicledata.Record
			err     error
		)
		if strings.Contains(r.Header.Get("Content-Type"), "json") {
			records, err = vehicledata.ReadJSON(r.Body, level)
		} else {
			records, err = vehicledata.ReadCSV(r.Body, level)
		}
		if err != nil {
			zap.L().Warn("rejecting malformed batch body", zap.Error(err))
			http.Error(w, `{"error":"unparsable request body"}`, http.StatusBadRequest)
			return
		}
		fillDefaultZip(records)

		result := run(r.Context(), records, valuation.Options{
			Concurrency:    cfg.Batch.Concurrency,
			Limit:          limit,
			EarlyStopRatio: cfg.Batch.EarlyStopRatio,
			Verbose:        report,
			IncludePrices:  prices,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			zap.L().Error("encode batch response", zap.Error(err))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
