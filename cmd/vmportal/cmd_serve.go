package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vmportal/internal/api"
	"github.com/yairfalse/vmportal/internal/azure"
	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/portal"
	"github.com/yairfalse/vmportal/internal/telemetry"
)

var (
	serveAddr        string
	serveMetricsAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP API",
		Long: `Run the portal HTTP API together with a Prometheus metrics listener.

The API listens on server.addr (PORTAL_ADDR) and metrics are served on
server.metrics_addr at /metrics. SIGINT or SIGTERM triggers a graceful
shutdown bounded by server.shutdown_timeout.`,
		Example: `  # Serve with settings from .env and the environment
  vmportal serve

  # Override the listen address
  vmportal serve --addr :3000 --metrics-addr :9100`,
		RunE: runServe,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "API listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Metrics listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveMetricsAddr != "" {
		cfg.Server.MetricsAddr = serveMetricsAddr
	}

	ctx := cmd.Context()

	provider, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	cloud, err := azure.New(cfg.Azure, nil)
	if err != nil {
		return fmt.Errorf("failed to create Azure clients: %w", err)
	}

	p := portal.New(cfg, cloud.Clients(),
		portal.WithRecorder(provider),
		portal.WithTracer(provider.Tracer()),
		portal.WithLogger(log.Logger),
	)

	gin.SetMode(gin.ReleaseMode)
	server := api.New(p, log.Logger)

	log.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("metrics_addr", cfg.Server.MetricsAddr).
		Str("vm_resource_group", cfg.Azure.VMResourceGroup).
		Bool("service_principal", cfg.Azure.HasClientSecret()).
		Msg("starting vmportal")

	err = serve(ctx, cfg.Server, server.Handler(), provider.Handler())

	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("shutdown complete")
		return nil
	}
	return err
}

// serve runs the API and metrics listeners until one fails or a signal
// arrives.
func serve(ctx context.Context, cfg config.ServerConfig, app, metrics http.Handler) error {
	var g run.Group

	apiServer := newHTTPServer(cfg.Addr, app)
	addServer(&g, "api", apiServer, cfg.ShutdownTimeout)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/healthz", handleHealthz)
	addServer(&g, "metrics", newHTTPServer(cfg.MetricsAddr, mux), cfg.ShutdownTimeout)

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	return g.Run()
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func addServer(g *run.Group, name string, srv *http.Server, timeout time.Duration) {
	g.Add(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("%s listener: %w", name, err)
		}
		log.Info().Str("server", name).Str("addr", ln.Addr().String()).Msg("listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Str("server", name).Msg("graceful shutdown failed")
		}
	})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
