package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/config"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/storage"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "xcm-indexer",
		Short:        "Asset Hub XCM transfer indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	transfersCmd := &cobra.Command{
		Use:   "get-transfers-at",
		Short: "Extract XCM transfers from one finalized block",
		RunE:  runTransfers,
	}

	transfersCmd.Flags().String("block-hash", "", "hash of the block to scan (0x-prefixed)")
	transfersCmd.Flags().String("node-url", config.DefaultNodeURL, "Asset Hub websocket RPC URL")
	transfersCmd.Flags().String("metadata", config.DefaultMetadataPath, "runtime metadata artifact path")
	transfersCmd.Flags().String("output-file", "", "append transfers to this JSONL file instead of stdout")
	transfersCmd.Flags().String("pg-dsn", "", "Postgres DSN for the optional database sink")
	transfersCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(transfersCmd)

	subscribeCmd := &cobra.Command{
		Use:   "subscribe-to-new-transfers",
		Short: "Follow finalized blocks and extract XCM transfers",
		RunE:  runSubscribe,
	}

	subscribeCmd.Flags().String("node-url", config.DefaultNodeURL, "Asset Hub websocket RPC URL")
	subscribeCmd.Flags().String("metadata", config.DefaultMetadataPath, "runtime metadata artifact path")
	subscribeCmd.Flags().String("output-file", "", "append transfers to this JSONL file instead of stdout")
	subscribeCmd.Flags().String("pg-dsn", "", "Postgres DSN for the optional database sink")
	subscribeCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	subscribeCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	subscribeCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	subscribeCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	subscribeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(subscribeCmd)

	metadataCmd := &cobra.Command{
		Use:   "fetch-metadata",
		Short: "Download the node's runtime metadata into the local artifact",
		RunE:  runFetchMetadata,
	}

	metadataCmd.Flags().String("node-url", config.DefaultNodeURL, "Asset Hub websocket RPC URL")
	metadataCmd.Flags().String("metadata", config.DefaultMetadataPath, "runtime metadata artifact path")
	metadataCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(metadataCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// buildSink assembles the output chain: a JSONL file when configured,
// stdout otherwise, plus Postgres when a DSN is set. The returned closer
// releases the Postgres pool.
func buildSink(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	var sinks storage.Fanout

	if cfg.OutputFile != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.OutputFile))
	} else {
		sinks = append(sinks, storage.NewWriter(os.Stdout))
	}

	closeSink := func() {}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		sinks = append(sinks, store)
		closeSink = store.Close
	}

	return sinks, closeSink, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
