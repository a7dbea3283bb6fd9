package xcm

import (
	"math/big"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// JunctionKind discriminates the junction shapes the indexer recognizes.
// Anything else parses as JunctionOther, which resolves to no chain rather
// than failing the enclosing location.
type JunctionKind uint8

const (
	JunctionOther JunctionKind = iota
	JunctionParachain
	JunctionAccountId32
	JunctionAccountKey20
	JunctionPalletInstance
	JunctionGeneralIndex
	JunctionGlobalConsensus
)

// NetworkKind discriminates the consensus networks a GlobalConsensus
// junction can point at.
type NetworkKind uint8

const (
	NetworkOther NetworkKind = iota
	NetworkPolkadot
	NetworkKusama
	NetworkEthereum
)

// Network is the payload of a GlobalConsensus junction.
type Network struct {
	Kind    NetworkKind
	ChainID uint64 // NetworkEthereum
}

// Junction is one hop of a location path. The populated payload field
// depends on Kind.
type Junction struct {
	Kind         JunctionKind
	ParaID       uint32   // JunctionParachain
	AccountID    []byte   // JunctionAccountId32, 32 bytes
	AccountKey   []byte   // JunctionAccountKey20, 20 bytes
	PalletIndex  uint8    // JunctionPalletInstance
	GeneralIndex *big.Int // JunctionGeneralIndex
	Network      Network  // JunctionGlobalConsensus
}

// Location is a parsed interchain location: how many hops up the consensus
// hierarchy, then an ordered junction path down.
type Location struct {
	Parents   uint8
	Junctions []Junction
}

// ParseLocation reads a decoded location value. Both junction layouts are
// accepted: the X1..X8 arms holding junctions directly and the arms holding
// a fixed-size junction array.
func ParseLocation(v scale.Value) (Location, bool) {
	parents, ok := v.Field("parents")
	if !ok {
		return Location{}, false
	}
	p, ok := parents.AsUint()
	if !ok || p > 0xff {
		return Location{}, false
	}
	interior, ok := v.Field("interior")
	if !ok || interior.Kind != scale.ValueVariant {
		return Location{}, false
	}

	loc := Location{Parents: uint8(p)}
	if interior.Variant == "Here" {
		return loc, true
	}
	for _, f := range interior.Fields {
		if f.Value.Kind == scale.ValueList {
			for _, elem := range f.Value.List {
				loc.Junctions = append(loc.Junctions, parseJunction(elem))
			}
			continue
		}
		loc.Junctions = append(loc.Junctions, parseJunction(f.Value))
	}
	return loc, true
}

// ParseVersionedLocation unwraps a versioned location. Only the supported
// protocol version is accepted; every other version reports false and the
// caller skips the enclosing item.
func ParseVersionedLocation(v scale.Value) (Location, bool) {
	if !v.IsVariant("V3") || v.Len() != 1 {
		return Location{}, false
	}
	inner, _ := v.At(0)
	return ParseLocation(inner)
}

func parseJunction(v scale.Value) Junction {
	if v.Kind != scale.ValueVariant {
		return Junction{}
	}
	switch v.Variant {
	case "Parachain":
		inner, _ := v.At(0)
		if id, ok := inner.AsUint(); ok {
			return Junction{Kind: JunctionParachain, ParaID: uint32(id)}
		}
	case "AccountId32":
		if id, ok := v.Field("id"); ok {
			if raw, ok := id.AsBytes(); ok && len(raw) == 32 {
				return Junction{Kind: JunctionAccountId32, AccountID: raw}
			}
		}
	case "AccountKey20":
		if key, ok := v.Field("key"); ok {
			if raw, ok := key.AsBytes(); ok && len(raw) == 20 {
				return Junction{Kind: JunctionAccountKey20, AccountKey: raw}
			}
		}
	case "PalletInstance":
		inner, _ := v.At(0)
		if idx, ok := inner.AsUint(); ok && idx <= 0xff {
			return Junction{Kind: JunctionPalletInstance, PalletIndex: uint8(idx)}
		}
	case "GeneralIndex":
		inner, _ := v.At(0)
		if idx, ok := inner.AsBig(); ok {
			return Junction{Kind: JunctionGeneralIndex, GeneralIndex: idx}
		}
	case "GlobalConsensus":
		inner, _ := v.At(0)
		return Junction{Kind: JunctionGlobalConsensus, Network: parseNetwork(inner)}
	}
	return Junction{}
}

func parseNetwork(v scale.Value) Network {
	if v.Kind != scale.ValueVariant {
		return Network{}
	}
	switch v.Variant {
	case "Polkadot":
		return Network{Kind: NetworkPolkadot}
	case "Kusama":
		return Network{Kind: NetworkKusama}
	case "Ethereum":
		if id, ok := v.Field("chain_id"); ok {
			if chainID, ok := id.AsUint(); ok {
				return Network{Kind: NetworkEthereum, ChainID: chainID}
			}
		}
	}
	return Network{}
}

// IsParent reports whether the location is the chain one hop up, the
// identity of the relay's native asset.
func (l Location) IsParent() bool {
	return l.Parents == 1 && len(l.Junctions) == 0
}

// IsHere reports whether the location is the local chain itself.
func (l Location) IsHere() bool {
	return l.Parents == 0 && len(l.Junctions) == 0
}

// SiblingPara extracts the parachain id of a sibling-chain location.
func (l Location) SiblingPara() (uint32, bool) {
	if l.Parents == 1 && len(l.Junctions) == 1 && l.Junctions[0].Kind == JunctionParachain {
		return l.Junctions[0].ParaID, true
	}
	return 0, false
}

// LocalAssetIndex extracts the asset index of a location naming an asset of
// the local assets pallet, identified by its pallet index.
func (l Location) LocalAssetIndex(assetsPallet uint8) (uint64, bool) {
	if l.Parents != 0 || len(l.Junctions) != 2 {
		return 0, false
	}
	pallet, index := l.Junctions[0], l.Junctions[1]
	if pallet.Kind != JunctionPalletInstance || pallet.PalletIndex != assetsPallet {
		return 0, false
	}
	if index.Kind != JunctionGeneralIndex || index.GeneralIndex == nil || !index.GeneralIndex.IsUint64() {
		return 0, false
	}
	return index.GeneralIndex.Uint64(), true
}
