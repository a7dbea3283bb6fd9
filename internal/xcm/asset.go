package xcm

import (
	"math/big"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// Asset is a fungible asset named by location, paired with a raw amount.
// Only concrete, fungible assets are representable; other shapes fail to
// parse and the caller drops them.
type Asset struct {
	Location Location
	Amount   *big.Int
}

// ParseAsset reads one decoded asset value. The id field holds either a
// Concrete variant wrapping a location or, in newer layouts, the location
// composite directly.
func ParseAsset(v scale.Value) (Asset, bool) {
	id, ok := v.Field("id")
	if !ok {
		return Asset{}, false
	}
	if id.IsVariant("Concrete") {
		inner, ok := id.At(0)
		if !ok {
			return Asset{}, false
		}
		id = inner
	}
	loc, ok := ParseLocation(id)
	if !ok {
		return Asset{}, false
	}

	fun, ok := v.Field("fun")
	if !ok || !fun.IsVariant("Fungible") {
		return Asset{}, false
	}
	amountValue, ok := fun.At(0)
	if !ok {
		return Asset{}, false
	}
	amount, ok := amountValue.AsBig()
	if !ok {
		return Asset{}, false
	}
	return Asset{Location: loc, Amount: amount}, true
}

// ParseAssets reads a decoded asset list, a single-field wrapper around a
// sequence of assets. Elements that do not parse are skipped so one exotic
// asset does not hide the rest of the list.
func ParseAssets(v scale.Value) ([]Asset, bool) {
	list, ok := v.At(0)
	if !ok || list.Kind != scale.ValueList {
		return nil, false
	}
	assets := make([]Asset, 0, len(list.List))
	for _, elem := range list.List {
		if a, ok := ParseAsset(elem); ok {
			assets = append(assets, a)
		}
	}
	return assets, true
}

// ParseVersionedAssets unwraps a versioned asset list, accepting only the
// supported protocol version.
func ParseVersionedAssets(v scale.Value) ([]Asset, bool) {
	if !v.IsVariant("V3") || v.Len() != 1 {
		return nil, false
	}
	inner, _ := v.At(0)
	return ParseAssets(inner)
}
