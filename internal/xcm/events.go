package xcm

import (
	"fmt"
	"math/big"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// Phase tells during which part of block execution an event was emitted.
type Phase uint8

const (
	PhaseOther Phase = iota
	PhaseApplyExtrinsic
	PhaseFinalization
	PhaseInitialization
)

// Event is one entry of a block's event log, identified by pallet and
// variant name. Payload keeps the undecoded-by-name fields for the parsers
// below.
type Event struct {
	Phase   Phase
	Pallet  string
	Name    string
	Payload scale.Value
}

// ParseBlockEvents decodes the System.Events storage value, a vector of
// event records, into the flat event list the correlator walks.
func ParseBlockEvents(reg *scale.Registry, eventsType scale.TypeID, data []byte) ([]Event, error) {
	value, rest, err := scale.Decode(reg, eventsType, data)
	if err != nil {
		return nil, fmt.Errorf("xcm: decode event log: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("xcm: event log carries %d undescribed trailing bytes", len(rest))
	}
	if value.Kind != scale.ValueList {
		return nil, fmt.Errorf("xcm: event log is not a sequence")
	}

	events := make([]Event, 0, len(value.List))
	for i, rec := range value.List {
		ev, err := parseEventRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("xcm: event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseEventRecord(rec scale.Value) (Event, error) {
	phase, ok := rec.Field("phase")
	if !ok || phase.Kind != scale.ValueVariant {
		return Event{}, fmt.Errorf("record has no phase")
	}
	outer, ok := rec.Field("event")
	if !ok || outer.Kind != scale.ValueVariant {
		return Event{}, fmt.Errorf("record has no event")
	}
	inner, ok := outer.At(0)
	if !ok || inner.Kind != scale.ValueVariant {
		return Event{}, fmt.Errorf("%s event has no inner variant", outer.Variant)
	}
	return Event{
		Phase:   parsePhase(phase),
		Pallet:  outer.Variant,
		Name:    inner.Variant,
		Payload: inner,
	}, nil
}

func parsePhase(v scale.Value) Phase {
	switch v.Variant {
	case "ApplyExtrinsic":
		return PhaseApplyExtrinsic
	case "Finalization":
		return PhaseFinalization
	case "Initialization":
		return PhaseInitialization
	}
	return PhaseOther
}

// MessageOrigin identifies the queue a processed cross-chain message
// arrived on.
type MessageOrigin uint8

const (
	OriginOther MessageOrigin = iota
	OriginHere
	OriginParent
	OriginSibling
)

// ProcessedMessage is the payload of a message-queue processed marker: the
// origin the message came from and whether it executed successfully.
type ProcessedMessage struct {
	Origin  MessageOrigin
	Para    uint32 // OriginSibling
	Success bool
}

// ParseProcessed reads a processed-marker payload.
func ParseProcessed(payload scale.Value) (ProcessedMessage, bool) {
	origin, ok := payload.Field("origin")
	if !ok || origin.Kind != scale.ValueVariant {
		return ProcessedMessage{}, false
	}
	success, ok := payload.Field("success")
	if !ok || success.Kind != scale.ValueBool {
		return ProcessedMessage{}, false
	}

	msg := ProcessedMessage{Success: success.Bool}
	switch origin.Variant {
	case "Here":
		msg.Origin = OriginHere
	case "Parent":
		msg.Origin = OriginParent
	case "Sibling":
		inner, _ := origin.At(0)
		id, ok := inner.AsUint()
		if !ok {
			// Sibling ids are wrapped in a parachain-id newtype.
			unwrapped, found := inner.At(0)
			if !found {
				return ProcessedMessage{}, false
			}
			if id, ok = unwrapped.AsUint(); !ok {
				return ProcessedMessage{}, false
			}
		}
		msg.Origin = OriginSibling
		msg.Para = uint32(id)
	default:
		msg.Origin = OriginOther
	}
	return msg, true
}

// IssuanceKind tells which pallet minted the asset.
type IssuanceKind uint8

const (
	IssuanceNative  IssuanceKind = iota // Balances, the chain's native token
	IssuanceLocal                       // Assets pallet, indexed id
	IssuanceForeign                     // ForeignAssets pallet, location id
)

// Issuance is one asset-minting event: who received how much of what.
type Issuance struct {
	Kind        IssuanceKind
	Beneficiary []byte // 32-byte account id
	Amount      *big.Int

	AssetIndex    uint64      // IssuanceLocal
	AssetLocation Location    // IssuanceForeign
	AssetKey      scale.Value // IssuanceForeign, the undigested id for registry lookups
}

// ParseMinted reads a native-balance minted payload.
func ParseMinted(payload scale.Value) (Issuance, bool) {
	who, ok := accountField(payload, "who")
	if !ok {
		return Issuance{}, false
	}
	amount, ok := amountField(payload)
	if !ok {
		return Issuance{}, false
	}
	return Issuance{Kind: IssuanceNative, Beneficiary: who, Amount: amount}, true
}

// ParseAssetsIssued reads an assets-pallet issued payload.
func ParseAssetsIssued(payload scale.Value) (Issuance, bool) {
	id, ok := payload.Field("asset_id")
	if !ok {
		return Issuance{}, false
	}
	index, ok := id.AsUint()
	if !ok {
		return Issuance{}, false
	}
	owner, ok := accountField(payload, "owner")
	if !ok {
		return Issuance{}, false
	}
	amount, ok := amountField(payload)
	if !ok {
		return Issuance{}, false
	}
	return Issuance{Kind: IssuanceLocal, Beneficiary: owner, Amount: amount, AssetIndex: index}, true
}

// ParseForeignAssetsIssued reads a foreign-assets issued payload, whose
// asset id is itself a location.
func ParseForeignAssetsIssued(payload scale.Value) (Issuance, bool) {
	id, ok := payload.Field("asset_id")
	if !ok {
		return Issuance{}, false
	}
	loc, ok := ParseLocation(id)
	if !ok {
		return Issuance{}, false
	}
	owner, ok := accountField(payload, "owner")
	if !ok {
		return Issuance{}, false
	}
	amount, ok := amountField(payload)
	if !ok {
		return Issuance{}, false
	}
	return Issuance{Kind: IssuanceForeign, Beneficiary: owner, Amount: amount, AssetLocation: loc, AssetKey: id}, true
}

func amountField(payload scale.Value) (*big.Int, bool) {
	amount, ok := payload.Field("amount")
	if !ok {
		return nil, false
	}
	return amount.AsBig()
}

// accountField extracts a 32-byte account id, looking through the newtype
// wrapper account values decode into.
func accountField(payload scale.Value, name string) ([]byte, bool) {
	v, ok := payload.Field(name)
	if !ok {
		return nil, false
	}
	return accountBytes(v)
}

func accountBytes(v scale.Value) ([]byte, bool) {
	for depth := 0; depth < 4; depth++ {
		if b, ok := v.AsBytes(); ok {
			if len(b) != 32 {
				return nil, false
			}
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
