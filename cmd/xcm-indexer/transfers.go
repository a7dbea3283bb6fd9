package main

import (
	"context"
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

func runTransfers(cmd *cobra.Command, _ []string) error {
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

	hashArg, _ := cmd.Flags().GetString("block-hash")
	blockHash, err := indexer.ParseBlockHash(hashArg)
	if err != nil {
		return err
	}

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
	defer client.Close()

	node, err := client.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("fetch node metadata: %w", err)
	}
	if err := metadata.Validate(artifact, node); err != nil {
		return err
	}

	resolver, err := xcm.NewResolver(meta, client)
	if err != nil {
		return err
	}

	scanner, err := indexer.NewScanner(meta, resolver, logger)
	if err != nil {
		return err
	}

	sink, closeSink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	logger.Info("scanning block",
		zap.String("node", cfg.NodeURL),
		zap.String("block_hash", blockHash.Hex()),
		zap.String("output_file", cfg.OutputFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	block, err := client.GetBlock(ctx, blockHash, scanner.EventsKey())
	if err != nil {
		return err
	}

	transfers, err := scanner.Scan(ctx, block)
	if err != nil {
		return err
	}

	return sink.WriteTransfers(ctx, block.Number, transfers)
}
