package xcm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/ss58"
)

// Errors reported while resolving assets against the on-chain registries.
var (
	ErrAssetNotFound    = errors.New("xcm: asset not in registry")
	ErrUnsupportedAsset = errors.New("xcm: unsupported asset shape")
)

// The relay's native token needs no registry lookup.
const (
	dotName     = "DOT"
	dotDecimals = 10
)

const (
	assetsPalletName        = "Assets"
	foreignAssetsPalletName = "ForeignAssets"
	assetMetadataEntry      = "Metadata"
)

// AssetInfo is the display identity of an asset: its registered name and
// the decimal scaling of raw balances.
type AssetInfo struct {
	Name     string
	Decimals uint8
}

// NativeAsset returns the display identity of the relay's native token.
func NativeAsset() AssetInfo {
	return AssetInfo{Name: dotName, Decimals: dotDecimals}
}

// DestinationChain maps a destination location onto the chain model. The
// zero chain is returned for any shape outside the supported table; callers
// drop those transfers rather than failing.
func DestinationChain(loc Location) model.Chain {
	switch loc.Parents {
	case 0:
		if len(loc.Junctions) == 0 {
			return model.PolkadotAssetHub()
		}
	case 1:
		if len(loc.Junctions) == 0 {
			return model.PolkadotRelay()
		}
		if len(loc.Junctions) == 1 && loc.Junctions[0].Kind == JunctionParachain {
			return model.PolkadotParachain(uint64(loc.Junctions[0].ParaID))
		}
	case 2:
		return globalConsensusChain(loc.Junctions)
	}
	return model.Chain{}
}

// globalConsensusChain resolves two-parent locations, which step over the
// relay into another consensus system.
func globalConsensusChain(junctions []Junction) model.Chain {
	if len(junctions) == 0 || junctions[0].Kind != JunctionGlobalConsensus {
		return model.Chain{}
	}
	rest := junctions[1:]
	switch net := junctions[0].Network; net.Kind {
	case NetworkEthereum:
		if len(rest) == 0 || (len(rest) == 1 && rest[0].Kind == JunctionAccountKey20) {
			return model.Evm(net.ChainID)
		}
	case NetworkKusama:
		if len(rest) == 0 {
			return model.KusamaRelay()
		}
		if len(rest) == 1 && rest[0].Kind == JunctionParachain {
			return model.KusamaParachain(uint64(rest[0].ParaID))
		}
	}
	return model.Chain{}
}

// OriginChain maps a processed-marker origin onto the chain model.
func OriginChain(msg ProcessedMessage) (model.Chain, bool) {
	switch msg.Origin {
	case OriginHere:
		return model.PolkadotAssetHub(), true
	case OriginParent:
		return model.PolkadotRelay(), true
	case OriginSibling:
		return model.PolkadotParachain(uint64(msg.Para)), true
	}
	return model.Chain{}, false
}

// Beneficiary renders a beneficiary location as an address string. Only
// direct account junctions qualify: a 32-byte account id renders in the
// generic substrate format, a 20-byte key as hex.
func Beneficiary(loc Location) (string, bool) {
	if len(loc.Junctions) != 1 {
		return "", false
	}
	switch j := loc.Junctions[0]; j.Kind {
	case JunctionAccountId32:
		return ss58.Encode(j.AccountID, ss58.SubstratePrefix), true
	case JunctionAccountKey20:
		return "0x" + hex.EncodeToString(j.AccountKey), true
	}
	return "", false
}

// LocalAddress renders a 32-byte account id in the local chain's address
// format.
func LocalAddress(id []byte) string {
	return ss58.Encode(id, ss58.PolkadotPrefix)
}

// Sender renders an extrinsic's signing account, or a fixed placeholder for
// unsigned extrinsics.
func Sender(signer []byte) string {
	if len(signer) != 32 {
		return "Unsigned message"
	}
	return LocalAddress(signer)
}

// StorageReader reads a chain storage value at a block. A nil result with a
// nil error means the entry does not exist.
type StorageReader interface {
	GetStorage(ctx context.Context, key []byte, at common.Hash) ([]byte, error)
}

// Resolver turns asset identities into display metadata using the on-chain
// asset registries. Lookups are cached by storage key for the lifetime of
// the current binding; Rebind drops the cache when the connection changes.
type Resolver struct {
	meta         *metadata.Metadata
	assetsPallet uint8

	mu      sync.RWMutex
	storage StorageReader
	cache   map[string]AssetInfo
}

// NewResolver builds a resolver over the runtime's pallet tables.
func NewResolver(meta *metadata.Metadata, storage StorageReader) (*Resolver, error) {
	assets, ok := meta.Pallet(assetsPalletName)
	if !ok {
		return nil, fmt.Errorf("xcm: runtime has no %s pallet", assetsPalletName)
	}
	return &Resolver{
		meta:         meta,
		assetsPallet: assets.Index,
		storage:      storage,
		cache:        make(map[string]AssetInfo),
	}, nil
}

// Rebind points the resolver at a fresh storage connection and drops every
// cached registry entry, which must not outlive the connection it was read
// over.
func (r *Resolver) Rebind(storage StorageReader) {
	r.mu.Lock()
	r.storage = storage
	r.cache = make(map[string]AssetInfo)
	r.mu.Unlock()
}

// LocalAsset resolves an asset issued by the local assets pallet, keyed by
// its integer index.
func (r *Resolver) LocalAsset(ctx context.Context, at common.Hash, index uint64) (AssetInfo, error) {
	return r.lookup(ctx, at, assetsPalletName, scale.NewUint(index))
}

// ForeignAsset resolves a foreign asset named by a location decoded from
// call data, normalizing it to the registry's key layout first.
func (r *Resolver) ForeignAsset(ctx context.Context, at common.Hash, loc Location) (AssetInfo, error) {
	key, ok := registryLocationValue(loc)
	if !ok {
		return AssetInfo{}, fmt.Errorf("%w: foreign asset location", ErrUnsupportedAsset)
	}
	return r.lookup(ctx, at, foreignAssetsPalletName, key)
}

// ForeignAssetByKey resolves a foreign asset named by an id decoded from an
// event payload, which already carries the registry's key layout.
func (r *Resolver) ForeignAssetByKey(ctx context.Context, at common.Hash, key scale.Value) (AssetInfo, error) {
	return r.lookup(ctx, at, foreignAssetsPalletName, key)
}

// ResolvedAsset couples an asset's display metadata with its home chain,
// whose trust relationship to the destination decides teleportability.
type ResolvedAsset struct {
	Info AssetInfo
	Home model.Chain
}

// ResolveAsset classifies an asset location from call data and resolves its
// display metadata. Supported shapes: the relay native token, assets of the
// local assets pallet and native tokens of sibling parachains. Anything
// else reports ErrUnsupportedAsset, which callers treat as a per-asset
// skip.
func (r *Resolver) ResolveAsset(ctx context.Context, at common.Hash, loc Location) (ResolvedAsset, error) {
	if loc.IsParent() {
		return ResolvedAsset{Info: NativeAsset(), Home: model.PolkadotRelay()}, nil
	}
	if index, ok := loc.LocalAssetIndex(r.assetsPallet); ok {
		info, err := r.LocalAsset(ctx, at, index)
		if err != nil {
			return ResolvedAsset{}, err
		}
		return ResolvedAsset{Info: info, Home: model.PolkadotAssetHub()}, nil
	}
	if para, ok := loc.SiblingPara(); ok {
		info, err := r.ForeignAsset(ctx, at, loc)
		if err != nil {
			return ResolvedAsset{}, err
		}
		return ResolvedAsset{Info: info, Home: model.PolkadotParachain(uint64(para))}, nil
	}
	return ResolvedAsset{}, fmt.Errorf("%w: parents %d with %d junctions", ErrUnsupportedAsset, loc.Parents, len(loc.Junctions))
}

func (r *Resolver) lookup(ctx context.Context, at common.Hash, pallet string, key scale.Value) (AssetInfo, error) {
	storageKey, err := r.meta.StorageKey(pallet, assetMetadataEntry, key)
	if err != nil {
		return AssetInfo{}, err
	}

	r.mu.RLock()
	info, hit := r.cache[string(storageKey)]
	storage := r.storage
	r.mu.RUnlock()
	if hit {
		return info, nil
	}

	raw, err := storage.GetStorage(ctx, storageKey, at)
	if err != nil {
		return AssetInfo{}, err
	}
	if raw == nil {
		return AssetInfo{}, fmt.Errorf("%w: %s.%s key %s", ErrAssetNotFound, pallet, assetMetadataEntry, hexutil.Encode(storageKey))
	}

	entry, err := r.meta.StorageEntry(pallet, assetMetadataEntry)
	if err != nil {
		return AssetInfo{}, err
	}
	value, rest, err := scale.Decode(r.meta.Registry, entry.Value, raw)
	if err != nil {
		return AssetInfo{}, fmt.Errorf("xcm: decode %s metadata: %w", pallet, err)
	}
	if len(rest) != 0 {
		return AssetInfo{}, fmt.Errorf("xcm: %s metadata carries %d trailing bytes", pallet, len(rest))
	}
	info, err = assetInfoFromValue(value)
	if err != nil {
		return AssetInfo{}, fmt.Errorf("xcm: %s metadata: %w", pallet, err)
	}

	r.mu.Lock()
	r.cache[string(storageKey)] = info
	r.mu.Unlock()
	return info, nil
}

func assetInfoFromValue(v scale.Value) (AssetInfo, error) {
	name, ok := v.Field("name")
	if !ok {
		return AssetInfo{}, errors.New("no name field")
	}
	raw, ok := innerBytes(name)
	if !ok {
		return AssetInfo{}, errors.New("name is not a byte string")
	}
	decimals, ok := v.Field("decimals")
	if !ok {
		return AssetInfo{}, errors.New("no decimals field")
	}
	d, ok := decimals.AsUint()
	if !ok || d > 0xff {
		return AssetInfo{}, errors.New("decimals out of range")
	}
	return AssetInfo{Name: string(raw), Decimals: uint8(d)}, nil
}

// innerBytes looks through bounded-vector wrappers to the byte payload.
func innerBytes(v scale.Value) ([]byte, bool) {
	for depth := 0; depth < 4; depth++ {
		if b, ok := v.AsBytes(); ok {
			return b, true
		}
		inner, ok := v.At(0)
		if !ok {
			return nil, false
		}
		v = inner
	}
	return nil, false
}

// registryLocationValue renders a parsed location in the layout the
// foreign-assets registry keys on. Call arguments decode under a protocol
// version whose interior arms hold junctions directly; the registry's
// current key format wraps them in a fixed-size array. Only the junction
// shapes that identify sibling-parachain native tokens are rendered, every
// other shape reports false.
func registryLocationValue(loc Location) (scale.Value, bool) {
	interior := scale.NewVariant("Here", 0)
	if n := len(loc.Junctions); n > 0 {
		if n > 8 {
			return scale.Value{}, false
		}
		elems := make([]scale.Value, 0, n)
		for _, j := range loc.Junctions {
			jv, ok := registryJunctionValue(j)
			if !ok {
				return scale.Value{}, false
			}
			elems = append(elems, jv)
		}
		interior = scale.NewVariant(fmt.Sprintf("X%d", n), 0, scale.FieldValue{Value: scale.NewList(elems...)})
	}
	return scale.NewComposite(
		scale.FieldValue{Name: "parents", Value: scale.NewUint(uint64(loc.Parents))},
		scale.FieldValue{Name: "interior", Value: interior},
	), true
}

func registryJunctionValue(j Junction) (scale.Value, bool) {
	switch j.Kind {
	case JunctionParachain:
		return scale.NewVariant("Parachain", 0, scale.FieldValue{Value: scale.NewUint(uint64(j.ParaID))}), true
	case JunctionPalletInstance:
		return scale.NewVariant("PalletInstance", 0, scale.FieldValue{Value: scale.NewUint(uint64(j.PalletIndex))}), true
	case JunctionGeneralIndex:
		if j.GeneralIndex == nil {
			return scale.Value{}, false
		}
		return scale.NewVariant("GeneralIndex", 0, scale.FieldValue{Value: scale.NewBig(j.GeneralIndex)}), true
	}
	return scale.Value{}, false
}
