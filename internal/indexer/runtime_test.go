package indexer

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/xcm"
)

// A synthetic Asset Hub runtime: the pallets, events and calls the pipeline
// recognizes, with realistic indices, shared by the correlator, interpreter
// and scanner tests.
const (
	rtU8 scale.TypeID = iota
	rtU32
	rtU64
	rtU128
	rtBool
	rtBytes20
	rtBytes32
	rtBytes64
	rtByteSeq
	rtBounded
	rtAccount
	rtCompactU32
	rtCompactU64
	rtCompactU128
	rtNetwork
	rtOptionNetwork
	rtJunction
	rtInteriorV3
	rtLocationV3
	rtJunctionArr1
	rtJunctionArr2
	rtInteriorV4
	rtLocationV4
	rtVersionedLocation
	rtAssetID
	rtFungibility
	rtAsset
	rtAssetSeq
	rtAssetList
	rtVersionedAssets
	rtWeight
	rtWeightLimit
	rtParaID
	rtMessageOrigin
	rtAssetMeta
	rtMultiAddress
	rtSignature
	rtEra
	rtXcmCall
	rtBalancesCall
	rtRuntimeCall
	rtPhase
	rtSystemEvent
	rtBalancesEvent
	rtMessageQueueEvent
	rtAssetsEvent
	rtForeignAssetsEvent
	rtRuntimeEvent
	rtTopics
	rtEventRecord
	rtEventSeq
)

func assetHubRegistry() *scale.Registry {
	reg := scale.NewRegistry()
	reg.Add(rtU8, scale.Type{Kind: scale.KindPrimitive, Primitive: scale.PrimU8})
	reg.Add(rtU32, scale.Type{Kind: scale.KindPrimitive, Primitive: scale.PrimU32})
	reg.Add(rtU64, scale.Type{Kind: scale.KindPrimitive, Primitive: scale.PrimU64})
	reg.Add(rtU128, scale.Type{Kind: scale.KindPrimitive, Primitive: scale.PrimU128})
	reg.Add(rtBool, scale.Type{Kind: scale.KindPrimitive, Primitive: scale.PrimBool})
	reg.Add(rtBytes20, scale.Type{Kind: scale.KindArray, Len: 20, Elem: rtU8})
	reg.Add(rtBytes32, scale.Type{Kind: scale.KindArray, Len: 32, Elem: rtU8})
	reg.Add(rtBytes64, scale.Type{Kind: scale.KindArray, Len: 64, Elem: rtU8})
	reg.Add(rtByteSeq, scale.Type{Kind: scale.KindSequence, Elem: rtU8})
	reg.Add(rtBounded, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{{Type: rtByteSeq}}})
	reg.Add(rtAccount, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{{Type: rtBytes32}}})
	reg.Add(rtCompactU32, scale.Type{Kind: scale.KindCompact, Elem: rtU32})
	reg.Add(rtCompactU64, scale.Type{Kind: scale.KindCompact, Elem: rtU64})
	reg.Add(rtCompactU128, scale.Type{Kind: scale.KindCompact, Elem: rtU128})
	reg.Add(rtNetwork, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Polkadot", Index: 2},
		{Name: "Kusama", Index: 3},
		{Name: "Ethereum", Index: 7, Fields: []scale.Field{{Name: "chain_id", Type: rtCompactU64}}},
	}})
	reg.Add(rtOptionNetwork, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "None", Index: 0},
		{Name: "Some", Index: 1, Fields: []scale.Field{{Type: rtNetwork}}},
	}})
	reg.Add(rtJunction, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Parachain", Index: 0, Fields: []scale.Field{{Type: rtCompactU32}}},
		{Name: "AccountId32", Index: 1, Fields: []scale.Field{
			{Name: "network", Type: rtOptionNetwork},
			{Name: "id", Type: rtBytes32},
		}},
		{Name: "AccountKey20", Index: 3, Fields: []scale.Field{
			{Name: "network", Type: rtOptionNetwork},
			{Name: "key", Type: rtBytes20},
		}},
		{Name: "PalletInstance", Index: 4, Fields: []scale.Field{{Type: rtU8}}},
		{Name: "GeneralIndex", Index: 5, Fields: []scale.Field{{Type: rtCompactU128}}},
		{Name: "GlobalConsensus", Index: 9, Fields: []scale.Field{{Type: rtNetwork}}},
	}})
	reg.Add(rtInteriorV3, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Here", Index: 0},
		{Name: "X1", Index: 1, Fields: []scale.Field{{Type: rtJunction}}},
		{Name: "X2", Index: 2, Fields: []scale.Field{{Type: rtJunction}, {Type: rtJunction}}},
	}})
	reg.Add(rtLocationV3, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "parents", Type: rtU8},
		{Name: "interior", Type: rtInteriorV3},
	}})
	reg.Add(rtJunctionArr1, scale.Type{Kind: scale.KindArray, Len: 1, Elem: rtJunction})
	reg.Add(rtJunctionArr2, scale.Type{Kind: scale.KindArray, Len: 2, Elem: rtJunction})
	reg.Add(rtInteriorV4, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Here", Index: 0},
		{Name: "X1", Index: 1, Fields: []scale.Field{{Type: rtJunctionArr1}}},
		{Name: "X2", Index: 2, Fields: []scale.Field{{Type: rtJunctionArr2}}},
	}})
	reg.Add(rtLocationV4, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "parents", Type: rtU8},
		{Name: "interior", Type: rtInteriorV4},
	}})
	reg.Add(rtVersionedLocation, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "V2", Index: 1, Fields: []scale.Field{{Type: rtLocationV3}}},
		{Name: "V3", Index: 3, Fields: []scale.Field{{Type: rtLocationV3}}},
	}})
	reg.Add(rtAssetID, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Concrete", Index: 0, Fields: []scale.Field{{Type: rtLocationV3}}},
		{Name: "Abstract", Index: 1, Fields: []scale.Field{{Type: rtBytes32}}},
	}})
	reg.Add(rtFungibility, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Fungible", Index: 0, Fields: []scale.Field{{Type: rtCompactU128}}},
		{Name: "NonFungible", Index: 1, Fields: []scale.Field{{Type: rtU8}}},
	}})
	reg.Add(rtAsset, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "id", Type: rtAssetID},
		{Name: "fun", Type: rtFungibility},
	}})
	reg.Add(rtAssetSeq, scale.Type{Kind: scale.KindSequence, Elem: rtAsset})
	reg.Add(rtAssetList, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{{Type: rtAssetSeq}}})
	reg.Add(rtVersionedAssets, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "V2", Index: 1, Fields: []scale.Field{{Type: rtAssetList}}},
		{Name: "V3", Index: 3, Fields: []scale.Field{{Type: rtAssetList}}},
	}})
	reg.Add(rtWeight, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "ref_time", Type: rtCompactU64},
		{Name: "proof_size", Type: rtCompactU64},
	}})
	reg.Add(rtWeightLimit, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Unlimited", Index: 0},
		{Name: "Limited", Index: 1, Fields: []scale.Field{{Type: rtWeight}}},
	}})
	reg.Add(rtParaID, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{{Type: rtU32}}})
	reg.Add(rtMessageOrigin, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Here", Index: 0},
		{Name: "Parent", Index: 1},
		{Name: "Sibling", Index: 2, Fields: []scale.Field{{Type: rtParaID}}},
	}})
	reg.Add(rtAssetMeta, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "deposit", Type: rtU128},
		{Name: "name", Type: rtBounded},
		{Name: "symbol", Type: rtBounded},
		{Name: "decimals", Type: rtU8},
		{Name: "is_frozen", Type: rtBool},
	}})
	reg.Add(rtMultiAddress, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Id", Index: 0, Fields: []scale.Field{{Type: rtAccount}}},
		{Name: "Index", Index: 1, Fields: []scale.Field{{Type: rtCompactU32}}},
	}})
	reg.Add(rtSignature, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Ed25519", Index: 0, Fields: []scale.Field{{Type: rtBytes64}}},
		{Name: "Sr25519", Index: 1, Fields: []scale.Field{{Type: rtBytes64}}},
	}})
	reg.Add(rtEra, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Immortal", Index: 0},
	}})
	transferFields := []scale.Field{
		{Name: "dest", Type: rtVersionedLocation},
		{Name: "beneficiary", Type: rtVersionedLocation},
		{Name: "assets", Type: rtVersionedAssets},
		{Name: "fee_asset_item", Type: rtU32},
		{Name: "weight_limit", Type: rtWeightLimit},
	}
	reg.Add(rtXcmCall, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "limited_reserve_transfer_assets", Index: 8, Fields: transferFields},
		{Name: "limited_teleport_assets", Index: 9, Fields: transferFields},
		{Name: "transfer_assets", Index: 11, Fields: transferFields},
	}})
	reg.Add(rtBalancesCall, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "transfer_keep_alive", Index: 3, Fields: []scale.Field{
			{Name: "dest", Type: rtMultiAddress},
			{Name: "value", Type: rtCompactU128},
		}},
	}})
	reg.Add(rtRuntimeCall, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Balances", Index: 10, Fields: []scale.Field{{Type: rtBalancesCall}}},
		{Name: "PolkadotXcm", Index: 31, Fields: []scale.Field{{Type: rtXcmCall}}},
	}})
	reg.Add(rtPhase, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "ApplyExtrinsic", Index: 0, Fields: []scale.Field{{Type: rtU32}}},
		{Name: "Finalization", Index: 1},
		{Name: "Initialization", Index: 2},
	}})
	reg.Add(rtSystemEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "ExtrinsicSuccess", Index: 0, Fields: []scale.Field{{Name: "dispatch_info", Type: rtWeight}}},
	}})
	reg.Add(rtBalancesEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Minted", Index: 10, Fields: []scale.Field{
			{Name: "who", Type: rtAccount},
			{Name: "amount", Type: rtU128},
		}},
	}})
	reg.Add(rtMessageQueueEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Processed", Index: 1, Fields: []scale.Field{
			{Name: "id", Type: rtBytes32},
			{Name: "origin", Type: rtMessageOrigin},
			{Name: "weight_used", Type: rtWeight},
			{Name: "success", Type: rtBool},
		}},
	}})
	reg.Add(rtAssetsEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Issued", Index: 1, Fields: []scale.Field{
			{Name: "asset_id", Type: rtU32},
			{Name: "owner", Type: rtAccount},
			{Name: "amount", Type: rtU128},
		}},
	}})
	reg.Add(rtForeignAssetsEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "Issued", Index: 1, Fields: []scale.Field{
			{Name: "asset_id", Type: rtLocationV4},
			{Name: "owner", Type: rtAccount},
			{Name: "amount", Type: rtU128},
		}},
	}})
	reg.Add(rtRuntimeEvent, scale.Type{Kind: scale.KindVariant, Variants: []scale.Variant{
		{Name: "System", Index: 0, Fields: []scale.Field{{Type: rtSystemEvent}}},
		{Name: "Balances", Index: 10, Fields: []scale.Field{{Type: rtBalancesEvent}}},
		{Name: "MessageQueue", Index: 34, Fields: []scale.Field{{Type: rtMessageQueueEvent}}},
		{Name: "Assets", Index: 50, Fields: []scale.Field{{Type: rtAssetsEvent}}},
		{Name: "ForeignAssets", Index: 53, Fields: []scale.Field{{Type: rtForeignAssetsEvent}}},
	}})
	reg.Add(rtTopics, scale.Type{Kind: scale.KindSequence, Elem: rtBytes32})
	reg.Add(rtEventRecord, scale.Type{Kind: scale.KindComposite, Fields: []scale.Field{
		{Name: "phase", Type: rtPhase},
		{Name: "event", Type: rtRuntimeEvent},
		{Name: "topics", Type: rtTopics},
	}})
	reg.Add(rtEventSeq, scale.Type{Kind: scale.KindSequence, Elem: rtEventRecord})
	return reg
}

func assetHubMetadata() *metadata.Metadata {
	pallets := []metadata.Pallet{
		{Name: "System", Index: 0, HasEvents: true, EventType: rtSystemEvent,
			Storage: &metadata.Storage{Prefix: "System", Entries: map[string]metadata.StorageEntry{
				"Events": {Name: "Events", Plain: true, Value: rtEventSeq},
			}}},
		{Name: "Balances", Index: 10, HasEvents: true, EventType: rtBalancesEvent},
		{Name: "PolkadotXcm", Index: 31, HasCalls: true, CallType: rtXcmCall},
		{Name: "MessageQueue", Index: 34, HasEvents: true, EventType: rtMessageQueueEvent},
		{Name: "Assets", Index: 50, HasEvents: true, EventType: rtAssetsEvent,
			Storage: &metadata.Storage{Prefix: "Assets", Entries: map[string]metadata.StorageEntry{
				"Metadata": {Name: "Metadata", Hashers: []metadata.Hasher{metadata.HasherBlake2_128Concat}, Key: rtU32, Value: rtAssetMeta},
			}}},
		{Name: "ForeignAssets", Index: 53, HasEvents: true, EventType: rtForeignAssetsEvent,
			Storage: &metadata.Storage{Prefix: "ForeignAssets", Entries: map[string]metadata.StorageEntry{
				"Metadata": {Name: "Metadata", Hashers: []metadata.Hasher{metadata.HasherBlake2_128Concat}, Key: rtLocationV4, Value: rtAssetMeta},
			}}},
	}
	extrinsic := metadata.Extrinsic{
		Version:       4,
		AddressType:   rtMultiAddress,
		CallType:      rtRuntimeCall,
		SignatureType: rtSignature,
		SignedExtensions: []metadata.SignedExtension{
			{Name: "CheckMortality", Type: rtEra},
			{Name: "CheckNonce", Type: rtCompactU32},
			{Name: "ChargeTransactionPayment", Type: rtCompactU128},
		},
	}
	return metadata.New(assetHubRegistry(), pallets, extrinsic)
}

// Development accounts with well-known addresses.
var (
	devAlice = mustHex("d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	devBob   = mustHex("8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")
)

const (
	devAliceLocal   = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	devBobGeneric   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	wethContractHex = "c02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Location and junction value builders, in the layouts the runtime types
// above decode into.

func junctionParachain(id uint64) scale.Value {
	return scale.NewVariant("Parachain", 0, scale.FieldValue{Value: scale.NewUint(id)})
}

func junctionAccountId32(id []byte) scale.Value {
	return scale.NewVariant("AccountId32", 1,
		scale.FieldValue{Name: "network", Value: scale.NewVariant("None", 0)},
		scale.FieldValue{Name: "id", Value: scale.NewBytes(id)},
	)
}

func junctionAccountKey20(key []byte) scale.Value {
	return scale.NewVariant("AccountKey20", 3,
		scale.FieldValue{Name: "network", Value: scale.NewVariant("None", 0)},
		scale.FieldValue{Name: "key", Value: scale.NewBytes(key)},
	)
}

func junctionPalletInstance(idx uint64) scale.Value {
	return scale.NewVariant("PalletInstance", 4, scale.FieldValue{Value: scale.NewUint(idx)})
}

func junctionGeneralIndex(idx uint64) scale.Value {
	return scale.NewVariant("GeneralIndex", 5, scale.FieldValue{Value: scale.NewUint(idx)})
}

func junctionGlobalConsensus(network scale.Value) scale.Value {
	return scale.NewVariant("GlobalConsensus", 9, scale.FieldValue{Value: network})
}

func networkKusama() scale.Value { return scale.NewVariant("Kusama", 3) }

func networkEthereum(chainID uint64) scale.Value {
	return scale.NewVariant("Ethereum", 7, scale.FieldValue{Name: "chain_id", Value: scale.NewUint(chainID)})
}

// v3Location is the call-data layout: X arms hold junctions directly.
func v3Location(parents uint64, junctions ...scale.Value) scale.Value {
	interior := scale.NewVariant("Here", 0)
	if n := len(junctions); n > 0 {
		fields := make([]scale.FieldValue, 0, n)
		for _, j := range junctions {
			fields = append(fields, scale.FieldValue{Value: j})
		}
		interior = scale.NewVariant(fmt.Sprintf("X%d", n), uint8(n), fields...)
	}
	return scale.NewComposite(
		scale.FieldValue{Name: "parents", Value: scale.NewUint(parents)},
		scale.FieldValue{Name: "interior", Value: interior},
	)
}

// v4Location is the registry and event layout: X arms hold a junction array.
func v4Location(parents uint64, junctions ...scale.Value) scale.Value {
	interior := scale.NewVariant("Here", 0)
	if n := len(junctions); n > 0 {
		interior = scale.NewVariant(fmt.Sprintf("X%d", n), uint8(n), scale.FieldValue{Value: scale.NewList(junctions...)})
	}
	return scale.NewComposite(
		scale.FieldValue{Name: "parents", Value: scale.NewUint(parents)},
		scale.FieldValue{Name: "interior", Value: interior},
	)
}

func versionedV3(inner scale.Value) scale.Value {
	return scale.NewVariant("V3", 3, scale.FieldValue{Value: inner})
}

func fungible(loc scale.Value, amount uint64) scale.Value {
	return scale.NewComposite(
		scale.FieldValue{Name: "id", Value: scale.NewVariant("Concrete", 0, scale.FieldValue{Value: loc})},
		scale.FieldValue{Name: "fun", Value: scale.NewVariant("Fungible", 0, scale.FieldValue{Value: scale.NewUint(amount)})},
	)
}

func versionedAssets(assets ...scale.Value) scale.Value {
	wrapped := scale.NewComposite(scale.FieldValue{Value: scale.NewList(assets...)})
	return scale.NewVariant("V3", 3, scale.FieldValue{Value: wrapped})
}

// Event payload builders.

func mintedPayload(who []byte, amount uint64) scale.Value {
	return scale.NewVariant("Minted", 10,
		scale.FieldValue{Name: "who", Value: scale.NewBytes(who)},
		scale.FieldValue{Name: "amount", Value: scale.NewUint(amount)},
	)
}

func assetsIssuedPayload(assetID uint64, owner []byte, amount uint64) scale.Value {
	return scale.NewVariant("Issued", 1,
		scale.FieldValue{Name: "asset_id", Value: scale.NewUint(assetID)},
		scale.FieldValue{Name: "owner", Value: scale.NewBytes(owner)},
		scale.FieldValue{Name: "amount", Value: scale.NewUint(amount)},
	)
}

func foreignIssuedPayload(assetID scale.Value, owner []byte, amount uint64) scale.Value {
	return scale.NewVariant("Issued", 1,
		scale.FieldValue{Name: "asset_id", Value: assetID},
		scale.FieldValue{Name: "owner", Value: scale.NewBytes(owner)},
		scale.FieldValue{Name: "amount", Value: scale.NewUint(amount)},
	)
}

func originHere() scale.Value   { return scale.NewVariant("Here", 0) }
func originParent() scale.Value { return scale.NewVariant("Parent", 1) }

func originSibling(para uint64) scale.Value {
	return scale.NewVariant("Sibling", 2, scale.FieldValue{Value: scale.NewUint(para)})
}

func processedPayload(origin scale.Value, success bool) scale.Value {
	return scale.NewVariant("Processed", 1,
		scale.FieldValue{Name: "id", Value: scale.NewBytes(make([]byte, 32))},
		scale.FieldValue{Name: "origin", Value: origin},
		scale.FieldValue{Name: "weight_used", Value: weightValue()},
		scale.FieldValue{Name: "success", Value: scale.NewBool(success)},
	)
}

func weightValue() scale.Value {
	return scale.NewComposite(
		scale.FieldValue{Name: "ref_time", Value: scale.NewUint(0)},
		scale.FieldValue{Name: "proof_size", Value: scale.NewUint(0)},
	)
}

func finalizedEvent(pallet, name string, payload scale.Value) xcm.Event {
	return xcm.Event{Phase: xcm.PhaseFinalization, Pallet: pallet, Name: name, Payload: payload}
}

// Encoded-form builders for scanner tests, which exercise the decode path.

func phaseFinalization() scale.Value { return scale.NewVariant("Finalization", 1) }

func phaseApplyExtrinsic(idx uint64) scale.Value {
	return scale.NewVariant("ApplyExtrinsic", 0, scale.FieldValue{Value: scale.NewUint(idx)})
}

func eventRecord(phase scale.Value, pallet string, palletIdx uint8, payload scale.Value) scale.Value {
	return scale.NewComposite(
		scale.FieldValue{Name: "phase", Value: phase},
		scale.FieldValue{Name: "event", Value: scale.NewVariant(pallet, palletIdx, scale.FieldValue{Value: payload})},
		scale.FieldValue{Name: "topics", Value: scale.NewList()},
	)
}

func eventsBlob(t *testing.T, m *metadata.Metadata, records ...scale.Value) []byte {
	t.Helper()
	data, err := scale.Encode(m.Registry, rtEventSeq, scale.NewList(records...))
	if err != nil {
		t.Fatalf("encode event log: %v", err)
	}
	return data
}

// xcmTransferValue builds a runtime-call value for one of the XCM transfer
// calls.
func xcmTransferValue(call string, dest, beneficiary, assets scale.Value) scale.Value {
	var idx uint8
	switch call {
	case "limited_reserve_transfer_assets":
		idx = 8
	case "limited_teleport_assets":
		idx = 9
	case "transfer_assets":
		idx = 11
	}
	inner := scale.NewVariant(call, idx,
		scale.FieldValue{Name: "dest", Value: dest},
		scale.FieldValue{Name: "beneficiary", Value: beneficiary},
		scale.FieldValue{Name: "assets", Value: assets},
		scale.FieldValue{Name: "fee_asset_item", Value: scale.NewUint(0)},
		scale.FieldValue{Name: "weight_limit", Value: scale.NewVariant("Unlimited", 0)},
	)
	return scale.NewVariant("PolkadotXcm", 31, scale.FieldValue{Value: inner})
}

func balancesTransferValue(dest []byte, amount uint64) scale.Value {
	inner := scale.NewVariant("transfer_keep_alive", 3,
		scale.FieldValue{Name: "dest", Value: scale.NewVariant("Id", 0, scale.FieldValue{Value: scale.NewBytes(dest)})},
		scale.FieldValue{Name: "value", Value: scale.NewUint(amount)},
	)
	return scale.NewVariant("Balances", 10, scale.FieldValue{Value: inner})
}

func lengthPrefixed(payload []byte) []byte {
	var w scale.Writer
	w.PutCompactUint(uint64(len(payload)))
	w.PutBytes(payload)
	return w.Data()
}

func unsignedExtrinsic(t *testing.T, m *metadata.Metadata, call scale.Value) []byte {
	t.Helper()
	var w scale.Writer
	w.PutByte(0x04)
	if err := scale.EncodeWriter(m.Registry, m.Extrinsic.CallType, call, &w); err != nil {
		t.Fatalf("encode call: %v", err)
	}
	return lengthPrefixed(w.Data())
}

func signedExtrinsic(t *testing.T, m *metadata.Metadata, signer []byte, call scale.Value) []byte {
	t.Helper()
	var w scale.Writer
	w.PutByte(0x84)
	address := scale.NewVariant("Id", 0, scale.FieldValue{Value: scale.NewBytes(signer)})
	if err := scale.EncodeWriter(m.Registry, m.Extrinsic.AddressType, address, &w); err != nil {
		t.Fatalf("encode address: %v", err)
	}
	sig := scale.NewVariant("Sr25519", 1, scale.FieldValue{Value: scale.NewBytes(make([]byte, 64))})
	if err := scale.EncodeWriter(m.Registry, m.Extrinsic.SignatureType, sig, &w); err != nil {
		t.Fatalf("encode signature: %v", err)
	}
	extras := []scale.Value{scale.NewVariant("Immortal", 0), scale.NewUint(1), scale.NewUint(0)}
	for i, ext := range m.Extrinsic.SignedExtensions {
		if err := scale.EncodeWriter(m.Registry, ext.Type, extras[i], &w); err != nil {
			t.Fatalf("encode extension %s: %v", ext.Name, err)
		}
	}
	if err := scale.EncodeWriter(m.Registry, m.Extrinsic.CallType, call, &w); err != nil {
		t.Fatalf("encode call: %v", err)
	}
	return lengthPrefixed(w.Data())
}

// fakeStorage is an in-memory chain state for resolver lookups.
type fakeStorage struct {
	entries map[string][]byte
	reads   int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{entries: make(map[string][]byte)}
}

func (f *fakeStorage) GetStorage(_ context.Context, key []byte, _ common.Hash) ([]byte, error) {
	f.reads++
	raw, ok := f.entries[string(key)]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func assetMetadataValue(name string, decimals uint64) scale.Value {
	return scale.NewComposite(
		scale.FieldValue{Name: "deposit", Value: scale.NewUint(0)},
		scale.FieldValue{Name: "name", Value: scale.NewBytes([]byte(name))},
		scale.FieldValue{Name: "symbol", Value: scale.NewBytes([]byte(name))},
		scale.FieldValue{Name: "decimals", Value: scale.NewUint(decimals)},
		scale.FieldValue{Name: "is_frozen", Value: scale.NewBool(false)},
	)
}

func (f *fakeStorage) putMetadata(t *testing.T, m *metadata.Metadata, pallet string, key scale.Value, name string, decimals uint64) {
	t.Helper()
	storageKey, err := m.StorageKey(pallet, "Metadata", key)
	if err != nil {
		t.Fatalf("storage key: %v", err)
	}
	entry, err := m.StorageEntry(pallet, "Metadata")
	if err != nil {
		t.Fatalf("storage entry: %v", err)
	}
	raw, err := scale.Encode(m.Registry, entry.Value, assetMetadataValue(name, decimals))
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	f.entries[string(storageKey)] = raw
}

func (f *fakeStorage) putLocalAsset(t *testing.T, m *metadata.Metadata, index uint64, name string, decimals uint64) {
	f.putMetadata(t, m, "Assets", scale.NewUint(index), name, decimals)
}

func (f *fakeStorage) putForeignAsset(t *testing.T, m *metadata.Metadata, key scale.Value, name string, decimals uint64) {
	f.putMetadata(t, m, "ForeignAssets", key, name, decimals)
}

func newTestResolver(t *testing.T) (*xcm.Resolver, *fakeStorage, *metadata.Metadata) {
	t.Helper()
	m := assetHubMetadata()
	fs := newFakeStorage()
	r, err := xcm.NewResolver(m, fs)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	return r, fs, m
}
