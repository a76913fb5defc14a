// Package main is the entry point for metadatad.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/claudefs/claudefs/internal/config"
	"github.com/claudefs/claudefs/internal/infra/buildinfo"
	"github.com/claudefs/claudefs/internal/infra/confloader"
	"github.com/claudefs/claudefs/internal/infra/shutdown"
	"github.com/claudefs/claudefs/internal/journal"
	"github.com/claudefs/claudefs/internal/kvstore"
	"github.com/claudefs/claudefs/internal/metadatanode"
	"github.com/claudefs/claudefs/internal/server/metaserver"
	"github.com/claudefs/claudefs/internal/telemetry/logger"
	"github.com/claudefs/claudefs/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "path to configuration file")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("metadatad %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting metadatad", "version", buildinfo.Version, "commit", buildinfo.Commit, "node_id", cfg.Node.ID)

	kv, err := kvstore.New(kvstore.Config{
		Engine: cfg.KVStore.Engine,
		Dir:    cfg.KVStore.Dir,
		Badger: kvstore.BadgerConfig{
			GCIntervalSeconds: int(cfg.KVStore.Badger.GCInterval.Seconds()),
			GCThreshold:       cfg.KVStore.Badger.GCThreshold,
			CacheSize:         cfg.KVStore.Badger.CacheSize,
			ValueLogFileSize:  cfg.KVStore.Badger.ValueLogFileSize,
			SyncWrites:        cfg.KVStore.Badger.SyncWrites,
		},
	}, log)
	if err != nil {
		return fmt.Errorf("init kvstore: %w", err)
	}

	jw, err := journal.NewWriter(journal.Config{
		Dir:           journalDir(cfg),
		NodeID:        cfg.Node.ID,
		SyncMode:      journal.SyncMode(cfg.Journal.SyncMode),
		SyncInterval:  cfg.Journal.SyncInterval,
		BatchCount:    1000,
		BatchBytes:    cfg.Replication.BatchMaxBytes,
		MaxFileSize:   cfg.Journal.MaxFileSize,
		MaxEntryCount: cfg.Journal.MaxEntryCount,
	})
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}

	reg := metric.NewRegistry()

	nodeCfg := metadatanode.DefaultConfig(cfg.Node.ID, cfg.Node.SiteID)
	nodeCfg.NumShards = uint32(cfg.Shard.ShardCount)
	nodeCfg.ReplicationFactor = 3

	node, err := metadatanode.New(nodeCfg, kv, jw, reg)
	if err != nil {
		return fmt.Errorf("init metadata node: %w", err)
	}

	return serve(cfg, node, reg, jw, kv, log)
}

func serve(cfg config.NodeConfig, node *metadatanode.Node, reg *metric.Registry, jw *journal.Writer, kv kvstore.Store, log logger.Logger) error {
	handler := metaserver.NewRouter(node, reg, log)
	httpServer := metaserver.New(cfg.Node.HTTPAddr, handler)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing journal")
		return jw.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing kvstore")
		return kv.Close()
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Node.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("metadatad started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("metadatad stopped gracefully")
	return nil
}

func journalDir(cfg config.NodeConfig) string {
	if cfg.Journal.Dir != "" {
		return cfg.Journal.Dir
	}
	return filepath.Join(cfg.Node.DataDir, "journal")
}

func loadConfig(configFile string) (config.NodeConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithEnvPrefix("CLAUDEFS_")}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(&cfg); err != nil {
		return config.NodeConfig{}, err
	}

	return cfg, nil
}
