package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/httpapi"
	"github.com/pable/rift-rewind/internal/jobs"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rewind HTTP API",
	Long: `Starts the JSON API and a bounded pool of job workers. Submitted rewinds
are queued, deduplicated per player and processed in the background; clients
poll the status endpoint until the result is ready.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr == "" {
		serveAddr = cfg.HTTPAddr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := newOrchestrator(cfg, s, false)
	if err != nil {
		return err
	}

	// Jobs are cancelled on shutdown, never with the submitting request.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	queue := jobs.New(orch, cfg.JobWorkers, cfg.QueueDepth)
	queue.Start(workCtx)

	r := httpapi.NewRouter(httpapi.Deps{
		Queue:       queue,
		Status:      s.status,
		Results:     s.results,
		Invalidator: orch,
	})
	logRoutes(r)

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serveAddr).Int("workers", cfg.JobWorkers).Msg("http listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			cancelWork()
			_ = queue.Close()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	// Running jobs stop at their next batch boundary; their checkpoints
	// let the next process resume them.
	cancelWork()
	return queue.Close()
}

func logRoutes(r chi.Routes) {
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Msg("route")
		return nil
	})
}
