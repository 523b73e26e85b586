package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigo-web/serverio"
	"github.com/indigo-web/serverio/config"
	"github.com/indigo-web/serverio/internal/logging"
	"github.com/indigo-web/serverio/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "serverio:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("serverio", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file")
	port := flags.Uint16P("port", "p", 0, "port to listen on (overrides the config)")
	ipv4 := flags.Bool("ipv4", false, "bind an IPv4-only socket (overrides the config)")
	root := flags.StringP("root", "r", ".", "directory to serve files from")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if flags.Changed("port") {
		cfg.NET.Port = *port
	}

	if flags.Changed("ipv4") {
		cfg.NET.ForceIPv4 = *ipv4
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	m := metrics.NewNoop()
	var metricsServer *stdhttp.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewPrometheus(reg, cfg.Metrics.Namespace)
		metricsServer = serveMetrics(cfg.Metrics.Addr, reg, logger)
	}

	handler := &app{root: *root}
	srv := serverio.New(handler).
		Tune(cfg).
		Logger(logger).
		Metrics(m)
	handler.stats = srv

	if err = srv.Start(cfg.NET.Port, cfg.NET.ForceIPv4); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			logger.Info("restarting")
			if err = srv.Start(cfg.NET.Port, cfg.NET.ForceIPv4); err != nil {
				return err
			}

			continue
		}

		logger.Info("shutting down", zap.Stringer("signal", sig))
		break
	}

	signal.Stop(signals)
	srv.Stop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		if err = metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("failed to stop the metrics server", zap.Error(err))
		}
	}

	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &stdhttp.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics server is listening", zap.String("addr", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return server
}
