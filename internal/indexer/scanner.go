package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/chain"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

// Scanner runs the per-block pipeline: decode the event log, correlate
// received transfers, interpret sent transfers.
type Scanner struct {
	meta        *metadata.Metadata
	correlator  *Correlator
	interpreter *Interpreter
	eventsKey   []byte
	eventsType  scale.TypeID
}

// NewScanner wires the pipeline over one runtime description.
func NewScanner(meta *metadata.Metadata, resolver *xcm.Resolver, logger *zap.Logger) (*Scanner, error) {
	eventsKey, err := meta.StorageKey("System", "Events")
	if err != nil {
		return nil, err
	}
	eventsType, err := meta.EventsType()
	if err != nil {
		return nil, err
	}
	return &Scanner{
		meta:        meta,
		correlator:  NewCorrelator(resolver, logger),
		interpreter: NewInterpreter(meta, resolver, logger),
		eventsKey:   eventsKey,
		eventsType:  eventsType,
	}, nil
}

// EventsKey returns the storage key of the block event log, fetched by the
// block source alongside the block body.
func (s *Scanner) EventsKey() []byte { return s.eventsKey }

// Scan extracts every recognized transfer from one block, received
// transfers first. Scanning the same block twice yields the same ordered
// result.
func (s *Scanner) Scan(ctx context.Context, block chain.Block) ([]model.Transfer, error) {
	var events []xcm.Event
	if len(block.Events) > 0 {
		var err error
		events, err = xcm.ParseBlockEvents(s.meta.Registry, s.eventsType, block.Events)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", block.Number, err)
		}
	}

	transfers := s.correlator.Received(ctx, block.Hash, block.Number, events)
	transfers = append(transfers, s.interpreter.Sent(ctx, block.Hash, block.Number, block.Extrinsics)...)
	return transfers, nil
}
