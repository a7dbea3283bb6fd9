package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

// Interpreter extracts sent transfers from a block's extrinsics by
// recognizing the supported XCM transfer calls.
type Interpreter struct {
	meta     *metadata.Metadata
	resolver *xcm.Resolver
	logger   *zap.Logger
}

// NewInterpreter builds an interpreter over the runtime description and the
// given resolver.
func NewInterpreter(meta *metadata.Metadata, resolver *xcm.Resolver, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{meta: meta, resolver: resolver, logger: logger}
}

// Sent decodes every extrinsic of a block and emits one transfer per asset
// of each recognized transfer call. Undecodable extrinsics, unrecognized
// calls and unsupported destinations or beneficiaries are skipped without
// failing the block.
func (i *Interpreter) Sent(ctx context.Context, at common.Hash, blockNumber uint64, extrinsics [][]byte) []model.Transfer {
	var out []model.Transfer
	for idx, raw := range extrinsics {
		xt, err := xcm.ParseExtrinsic(i.meta, raw)
		if err != nil {
			i.logger.Debug("skipping undecodable extrinsic",
				zap.Uint64("block", blockNumber),
				zap.Int("index", idx),
				zap.Error(err))
			continue
		}
		call, ok := xcm.ParseTransferCall(xt)
		if !ok {
			continue
		}
		out = append(out, i.sentTransfers(ctx, at, blockNumber, xt, call)...)
	}
	return out
}

// sentTransfers projects one recognized call onto the output model, one
// record per resolvable asset. A single unsupported asset drops only
// itself.
func (i *Interpreter) sentTransfers(ctx context.Context, at common.Hash, blockNumber uint64, xt xcm.Extrinsic, call xcm.TransferCall) []model.Transfer {
	dest := xcm.DestinationChain(call.Dest)
	if !dest.Supported() {
		i.logger.Debug("skipping transfer to unsupported destination",
			zap.Uint64("block", blockNumber))
		return nil
	}
	beneficiary, ok := xcm.Beneficiary(call.Beneficiary)
	if !ok {
		i.logger.Debug("skipping transfer with unsupported beneficiary",
			zap.Uint64("block", blockNumber),
			zap.Stringer("destination", dest))
		return nil
	}
	sender := xcm.Sender(xt.Signer)

	out := make([]model.Transfer, 0, len(call.Assets))
	for _, asset := range call.Assets {
		resolved, err := i.resolver.ResolveAsset(ctx, at, asset.Location)
		if err != nil {
			i.logger.Debug("dropping unresolvable asset",
				zap.Uint64("block", blockNumber),
				zap.Error(err))
			continue
		}
		out = append(out, model.NewSent(model.SentTransfer{
			BlockNumber:      blockNumber,
			DestinationChain: dest,
			Sender:           sender,
			Beneficiary:      beneficiary,
			Asset:            resolved.Info.Name,
			Amount:           model.NewAmount(asset.Amount, int32(resolved.Info.Decimals)),
			TransferType:     transferType(call.Kind, dest, resolved),
		}))
	}
	return out
}

// transferType gives the transfer type of one asset of a call. The teleport
// and reserve calls state it directly; the version-agnostic call teleports
// an asset only when it is headed to its own home chain and that home is
// remote.
func transferType(kind xcm.CallKind, dest model.Chain, resolved xcm.ResolvedAsset) model.TransferType {
	switch kind {
	case xcm.CallLimitedTeleport:
		return model.Teleport
	case xcm.CallLimitedReserve:
		return model.Reserve
	}
	if dest == resolved.Home && resolved.Home != model.PolkadotAssetHub() {
		return model.Teleport
	}
	return model.Reserve
}
