package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/e7canasta/tilesync/config"
	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/radio/ether"
	"github.com/e7canasta/tilesync/radio/mqttradio"
	"github.com/e7canasta/tilesync/sim"
	"github.com/e7canasta/tilesync/viewer"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (built-in defaults when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	nodes := flag.Int("nodes", 0, "Override cluster.nodes")
	flag.Parse()

	// Setup structured logger
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "config", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *nodes > 0 {
		cfg.Cluster.Nodes = *nodes
	}

	slog.Info("starting tilesync cluster",
		"config", *configPath,
		"nodes", cfg.Cluster.Nodes,
		"transport", cfg.Radio.Transport,
		"codec", cfg.Codec,
		"debug", *debug,
	)

	nodeCfg, err := cfg.NodeConfig()
	if err != nil {
		slog.Error("invalid node configuration", "error", err)
		os.Exit(1)
	}

	clusterCfg := sim.ClusterConfig{
		Nodes: cfg.Cluster.Nodes,
		Node:  nodeCfg,
		Ether: []ether.Option{
			ether.WithQueueLength(cfg.Radio.QueueLength),
			ether.WithLoss(cfg.Radio.LossRate, cfg.Radio.LossSeed),
		},
	}
	if cfg.Radio.Transport == config.TransportMQTT {
		clusterCfg.Radio = func(_ int, id string) (hal.Radio, error) {
			return mqttradio.New(mqttradio.Config{
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				NodeID:      cfg.NodeID + "-" + id,
				QueueLength: cfg.Radio.QueueLength,
			})
		}
	}

	cluster, err := sim.NewCluster(clusterCfg)
	if err != nil {
		slog.Error("failed to build cluster", "error", err)
		os.Exit(1)
	}
	defer cluster.Close()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start viewer (non-blocking)
	view := viewer.New(cluster,
		viewer.WithAddr(cfg.Viewer.Addr),
		viewer.WithInterval(cfg.ViewerInterval()),
	)
	if err := view.Start(ctx); err != nil {
		slog.Error("failed to start viewer", "error", err)
		os.Exit(1)
	}

	// Run cluster in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- cluster.Run(ctx)
	}()

	// Wait for shutdown signal or error
	stopped := false
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		stopped = true
		if err != nil {
			slog.Error("cluster error", "error", err)
		}
	}
	cancel()

	// Graceful shutdown
	shutdownTimeout := cfg.ShutdownTimeout()
	slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := view.Close(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("viewer shutdown failed", "error", err)
	}

	if !stopped {
		select {
		case err := <-errChan:
			if err != nil {
				slog.Error("cluster stopped with error", "error", err)
			}
		case <-shutdownCtx.Done():
			slog.Warn("cluster did not stop within shutdown timeout")
		}
	}

	for id, s := range cluster.EtherStats() {
		slog.Info("radio stats", "port", id, "sent", s.Sent, "delivered", s.Delivered, "dropped", s.Dropped, "lost", s.Lost)
	}
	slog.Info("tilesync cluster stopped")
}
