package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/internal/config"
	"github.com/HerbHall/lanscan/internal/notify"
	"github.com/HerbHall/lanscan/internal/recon"
	"github.com/HerbHall/lanscan/internal/server"
	"github.com/HerbHall/lanscan/internal/snapshot"
	"github.com/HerbHall/lanscan/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}

	// Load configuration. Anything malformed stops the process before a
	// scan starts or a port is bound.
	settings, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if settings.Debug {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	defer logger.Sync()

	logger.Info("lanscan starting", append(version.Fields(),
		zap.String("subnet", settings.SubnetCIDR),
		zap.String("local_ip", settings.HostIPv4),
		zap.Int("workers", settings.Workers),
	)...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := snapshot.NewStore()
	opts := []recon.SchedulerOption{recon.WithSchedulerMetrics(recon.NewMetrics(reg))}

	if settings.MQTT.Broker != "" {
		n, err := notify.DialMQTT(settings.MQTT, logger)
		if err != nil {
			logger.Fatal("failed to connect to mqtt broker", zap.Error(err))
		}
		defer n.Close()
		opts = append(opts, recon.WithNotifiers(n))
	}

	scheduler, err := recon.New(settings, recon.NewProber(settings), store, logger, opts...)
	if err != nil {
		logger.Fatal("failed to create scan scheduler", zap.Error(err))
	}

	srv := server.New(settings.Addr(), settings.BaseURL, store, reg, logger.Named("server"))

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scan scheduler error", zap.Error(err))
		}
	}()

	logger.Info("lanscan ready", zap.String("addr", settings.Addr()), zap.String("base", settings.BaseURL))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	wg.Wait()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("lanscan stopped")
}
