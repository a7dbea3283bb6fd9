package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/chain"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/storage"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

// errStreamClosed signals that the finalized-head stream or its connection
// died and a fresh session is needed.
var errStreamClosed = errors.New("indexer: finalized stream closed")

// RunConfig holds runtime settings for the subscription loop.
type RunConfig struct {
	NodeURL           string
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner follows the finalized-head stream and feeds each block through the
// scanner. It tracks the last processed height so reconnections and missed
// notifications replay the gap instead of skipping it, and output keeps
// finalization order.
type Runner struct {
	cfg        RunConfig
	meta       *metadata.Metadata
	artifact   []byte
	resolver   *xcm.Resolver
	scanner    *Scanner
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore

	client        *chain.Client
	lastProcessed uint64
	haveProcessed bool
}

// NewRunner wires a runner. The runner takes ownership of the client: it
// replaces it on reconnect and closes it when Run returns. artifact is the
// raw metadata blob, held for revalidation against reconnected nodes.
func NewRunner(cfg RunConfig, meta *metadata.Metadata, artifact []byte, client *chain.Client, resolver *xcm.Resolver, sink storage.Storage, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner, err := NewScanner(meta, resolver, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		meta:       meta,
		artifact:   artifact,
		resolver:   resolver,
		scanner:    scanner,
		storage:    sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		client:     client,
	}, nil
}

// Run consumes the stream until the context is cancelled or a fatal error
// occurs. Transient disconnections reconnect with backoff.
func (r *Runner) Run(ctx context.Context) error {
	defer func() { r.client.Close() }()

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok {
		r.lastProcessed, r.haveProcessed = cp.LastProcessedBlock, true
		r.logger.Info("resuming from checkpoint",
			zap.Uint64("last_processed", cp.LastProcessedBlock))
	}

	for {
		err := r.consume(ctx)
		if !errors.Is(err, errStreamClosed) {
			return err
		}
		r.logger.Warn("finalized stream interrupted, reconnecting")
		if err := r.reconnect(ctx); err != nil {
			return err
		}
	}
}

// consume drains one subscription session. It reports errStreamClosed when
// the session dies and the runner should start a new one.
func (r *Runner) consume(ctx context.Context) error {
	heads, err := r.client.SubscribeFinalizedHeads(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("subscribe failed", zap.Error(err))
		return errStreamClosed
	}
	r.logger.Info("following finalized heads")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case head, ok := <-heads:
			if !ok {
				return errStreamClosed
			}
			r.logger.Info("finalized head", zap.Uint64("number", uint64(head.Number)))
			if err := r.advanceTo(ctx, uint64(head.Number)); err != nil {
				return err
			}
		}
	}
}

// advanceTo processes every block after the last processed one up to
// target, in order. The first head ever observed sets the starting point;
// history before it is not replayed.
func (r *Runner) advanceTo(ctx context.Context, target uint64) error {
	from := target
	if r.haveProcessed {
		if target <= r.lastProcessed {
			return nil
		}
		from = r.lastProcessed + 1
		if target > from {
			r.logger.Info("replaying gap", zap.Uint64("from", from), zap.Uint64("to", target))
		}
	}

	for n := from; n <= target; n++ {
		if err := r.processBlock(ctx, n); err != nil {
			return err
		}
		r.lastProcessed, r.haveProcessed = n, true
		if err := r.checkpoint.Save(n); err != nil {
			return err
		}
	}
	return nil
}

// processBlock fetches, scans and stores one block. Fetch failures force a
// reconnect; an undecodable block is surfaced and skipped, since refetching
// cannot change its bytes.
func (r *Runner) processBlock(ctx context.Context, number uint64) error {
	var block chain.Block
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		hash, err := r.client.GetBlockHash(ctx, number)
		if err != nil {
			r.logger.Warn("block hash fetch failed", zap.Uint64("block", number), zap.Error(err))
			return err
		}
		block, err = r.client.GetBlock(ctx, hash, r.scanner.EventsKey())
		if err != nil {
			r.logger.Warn("block fetch failed", zap.Uint64("block", number), zap.Error(err))
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("giving up on fetch, forcing reconnect",
			zap.Uint64("block", number), zap.Error(err))
		return errStreamClosed
	}

	transfers, err := r.scanner.Scan(ctx, block)
	if err != nil {
		r.logger.Error("scan failed, block skipped",
			zap.Uint64("block", number), zap.Error(err))
		return nil
	}
	if err := r.storage.WriteTransfers(ctx, block.Number, transfers); err != nil {
		return fmt.Errorf("write transfers for block %d: %w", number, err)
	}
	r.logger.Info("block processed",
		zap.Uint64("block", number), zap.Int("transfers", len(transfers)))
	return nil
}

// reconnect dials a fresh connection with backoff, revalidates the local
// metadata against the node and rebinds the resolver, whose cache must not
// outlive the old connection.
func (r *Runner) reconnect(ctx context.Context) error {
	r.client.Close()

	var (
		client *chain.Client
		node   []byte
	)
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		c, err := chain.NewClient(ctx, r.cfg.NodeURL, r.logger)
		if err != nil {
			r.logger.Warn("reconnect failed", zap.Error(err))
			return err
		}
		raw, err := c.GetMetadata(ctx)
		if err != nil {
			c.Close()
			r.logger.Warn("metadata fetch failed", zap.Error(err))
			return err
		}
		client, node = c, raw
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	if err := metadata.Validate(r.artifact, node); err != nil {
		client.Close()
		return err
	}

	r.client = client
	r.resolver.Rebind(client)
	r.logger.Info("reconnected", zap.String("node", r.cfg.NodeURL))
	return nil
}
