package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/context-engine/internal/metrics"
	ceserver "github.com/HendryAvila/context-engine/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE:  runServe,
	}
	cmd.Flags().String("transport", "stdio", "Transport: stdio or http")
	cmd.Flags().String("addr", ":8080", "Listen address for the http transport")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
	}
	addr, _ := cmd.Flags().GetString("addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadProject(cmd)
	if err != nil {
		return err
	}

	m := metrics.New()
	s, cleanup, err := ceserver.New(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		metricsSrv := startMetrics(metricsAddr, m, logger)
		defer shutdown(metricsSrv.Shutdown)
	}

	logger.Info("serving", "project", cfg.Root, "transport", transport, "version", ceserver.Version)

	if transport == "stdio" {
		return server.ServeStdio(s)
	}

	httpSrv := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Start(addr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdown(httpSrv.Shutdown)
		return nil
	}
}

func startMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	return srv
}

func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = fn(ctx)
}
