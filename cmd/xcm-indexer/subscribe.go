package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/chain"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/config"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/indexer"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

func runSubscribe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.NodeURL == "" {
		return fmt.Errorf("node url is required")
	}

	meta, artifact, err := metadata.LoadFile(cfg.MetadataPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.NodeURL, logger)
	if err != nil {
		return fmt.Errorf("connect node: %w", err)
	}

	node, err := client.GetMetadata(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("fetch node metadata: %w", err)
	}
	if err := metadata.Validate(artifact, node); err != nil {
		client.Close()
		return err
	}

	resolver, err := xcm.NewResolver(meta, client)
	if err != nil {
		client.Close()
		return err
	}

	sink, closeSink, err := buildSink(ctx, cfg)
	if err != nil {
		client.Close()
		return err
	}
	defer closeSink()

	// The runner owns the client from here on; it closes it when Run returns.
	runner, err := indexer.NewRunner(indexer.RunConfig{
		NodeURL:           cfg.NodeURL,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, meta, artifact, client, resolver, sink, logger)
	if err != nil {
		client.Close()
		return err
	}

	logger.Info("subscribe start",
		zap.String("node", cfg.NodeURL),
		zap.String("output_file", cfg.OutputFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
