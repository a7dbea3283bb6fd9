package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/chain"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/config"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
)

func runFetchMetadata(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
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
	if cfg.MetadataPath == "" {
		return fmt.Errorf("metadata path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.NodeURL, logger)
	if err != nil {
		return fmt.Errorf("connect node: %w", err)
	}
	defer client.Close()

	raw, err := client.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("fetch node metadata: %w", err)
	}

	// Parse before writing so a truncated or unsupported blob never
	// replaces a working artifact.
	if _, err := metadata.Parse(raw); err != nil {
		return err
	}

	version, err := client.GetRuntimeVersion(ctx)
	if err != nil {
		return fmt.Errorf("fetch runtime version: %w", err)
	}

	dir := filepath.Dir(cfg.MetadataPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(cfg.MetadataPath, raw, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	logger.Info("metadata artifact written",
		zap.String("path", cfg.MetadataPath),
		zap.String("spec_name", version.SpecName),
		zap.Uint32("spec_version", version.SpecVersion),
		zap.String("fingerprint", fmt.Sprintf("%016x", metadata.Fingerprint(raw))),
	)
	return nil
}
