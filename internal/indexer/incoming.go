package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

// eventKey identifies an event by pallet and variant name.
type eventKey struct {
	Pallet string
	Name   string
}

// issuanceParser extracts minting details from one recognized issuance
// payload.
type issuanceParser func(payload scale.Value) (xcm.Issuance, bool)

// issuanceEvents maps event identities to their extraction functions. The
// correlator consults this table instead of branching on names, so the
// recognized set can grow without touching the segmentation logic.
var issuanceEvents = map[eventKey]issuanceParser{
	{Pallet: "Balances", Name: "Minted"}:      xcm.ParseMinted,
	{Pallet: "Assets", Name: "Issued"}:        xcm.ParseAssetsIssued,
	{Pallet: "ForeignAssets", Name: "Issued"}: xcm.ParseForeignAssetsIssued,
}

var processedMarker = eventKey{Pallet: "MessageQueue", Name: "Processed"}

// Correlator reconstructs received transfers from a block's finalization
// events. The protocol leaves no explicit link between the assets a message
// mints and the processed marker that closes it, so the correlator
// partitions the ordered event log into segments: every issuance belongs to
// the next marker that follows it.
type Correlator struct {
	resolver *xcm.Resolver
	logger   *zap.Logger
}

// NewCorrelator builds a correlator over the given resolver.
func NewCorrelator(resolver *xcm.Resolver, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{resolver: resolver, logger: logger}
}

// Received walks one block's event log and emits a transfer per issuance
// attributed to a successfully processed message.
//
// The first segment knowingly overreaches: issuances minted by finalization
// hooks before any message ran are indistinguishable from the first
// message's own, so they are attributed to it. The trailing run after the
// last marker belongs to no completed message and is discarded.
func (c *Correlator) Received(ctx context.Context, at common.Hash, blockNumber uint64, events []xcm.Event) []model.Transfer {
	var out []model.Transfer
	var segment []xcm.Issuance

	for _, ev := range events {
		if ev.Phase != xcm.PhaseFinalization {
			continue
		}
		key := eventKey{Pallet: ev.Pallet, Name: ev.Name}
		if parse, ok := issuanceEvents[key]; ok {
			if iss, ok := parse(ev.Payload); ok {
				segment = append(segment, iss)
			} else {
				c.logger.Debug("skipping unparseable issuance event",
					zap.Uint64("block", blockNumber),
					zap.String("pallet", ev.Pallet),
					zap.String("event", ev.Name))
			}
			continue
		}
		if key == processedMarker {
			out = append(out, c.closeSegment(ctx, at, blockNumber, segment, ev)...)
			segment = nil
		}
	}
	return out
}

// closeSegment attributes the collected issuances to the message the marker
// reports. Failed and unreadable messages discard their segment.
func (c *Correlator) closeSegment(ctx context.Context, at common.Hash, blockNumber uint64, segment []xcm.Issuance, marker xcm.Event) []model.Transfer {
	msg, ok := xcm.ParseProcessed(marker.Payload)
	if !ok {
		c.logger.Debug("skipping segment with unparseable processed marker",
			zap.Uint64("block", blockNumber))
		return nil
	}
	if !msg.Success {
		c.logger.Debug("skipping segment of failed message",
			zap.Uint64("block", blockNumber))
		return nil
	}
	origin, ok := xcm.OriginChain(msg)
	if !ok {
		c.logger.Debug("skipping segment with unrecognized origin",
			zap.Uint64("block", blockNumber))
		return nil
	}

	out := make([]model.Transfer, 0, len(segment))
	for _, iss := range segment {
		if t, ok := c.receivedTransfer(ctx, at, blockNumber, origin, iss); ok {
			out = append(out, t)
		}
	}
	return out
}

// receivedTransfer projects one issuance onto the output model. The pairing
// of origin and issuing pallet decides the transfer type: the relay
// teleports its native token here, siblings send reserve-backed assets, and
// a sibling's own token registered as a foreign asset comes back by
// teleport. Unlisted pairings are not cross-chain transfers.
func (c *Correlator) receivedTransfer(ctx context.Context, at common.Hash, blockNumber uint64, origin model.Chain, iss xcm.Issuance) (model.Transfer, bool) {
	sibling := origin.Kind == model.ChainPolkadotParachain

	var (
		info         xcm.AssetInfo
		transferType model.TransferType
		err          error
	)
	switch {
	case iss.Kind == xcm.IssuanceNative && origin.Kind == model.ChainPolkadot:
		info = xcm.NativeAsset()
		transferType = model.Teleport
	case iss.Kind == xcm.IssuanceNative && sibling:
		info = xcm.NativeAsset()
		transferType = model.Reserve
	case iss.Kind == xcm.IssuanceLocal && sibling:
		info, err = c.resolver.LocalAsset(ctx, at, iss.AssetIndex)
		transferType = model.Reserve
	case iss.Kind == xcm.IssuanceForeign && sibling:
		info, err = c.resolver.ForeignAssetByKey(ctx, at, iss.AssetKey)
		transferType = model.Reserve
		if para, ok := iss.AssetLocation.SiblingPara(); ok && uint64(para) == origin.ID {
			transferType = model.Teleport
		}
	default:
		return model.Transfer{}, false
	}
	if err != nil {
		c.logger.Warn("dropping issuance with unresolvable asset",
			zap.Uint64("block", blockNumber),
			zap.Error(err))
		return model.Transfer{}, false
	}

	return model.NewReceived(model.ReceivedTransfer{
		BlockNumber:  blockNumber,
		OriginChain:  origin,
		Beneficiary:  xcm.LocalAddress(iss.Beneficiary),
		Asset:        info.Name,
		Amount:       model.NewAmount(iss.Amount, int32(info.Decimals)),
		TransferType: transferType,
	}), true
}
