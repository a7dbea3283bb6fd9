package storage

import (
	"context"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
)

// Storage is a sink for the transfers extracted from one block. Blocks with
// no transfers are reported too, so sinks can distinguish "processed,
// nothing found" from "not processed".
type Storage interface {
	WriteTransfers(ctx context.Context, blockNumber uint64, transfers []model.Transfer) error
}

// Fanout writes every block to several sinks in order, stopping at the
// first failure.
type Fanout []Storage

// WriteTransfers implements Storage.
func (f Fanout) WriteTransfers(ctx context.Context, blockNumber uint64, transfers []model.Transfer) error {
	for _, s := range f {
		if err := s.WriteTransfers(ctx, blockNumber, transfers); err != nil {
			return err
		}
	}
	return nil
}
