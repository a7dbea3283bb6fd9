package xcm

// CallKind identifies one of the supported outgoing transfer calls.
type CallKind uint8

const (
	CallLimitedTeleport CallKind = iota
	CallLimitedReserve
	CallTransferAssets
)

// Names of the transfer calls on the XCM pallet.
const (
	xcmPallet           = "PolkadotXcm"
	callLimitedTeleport = "limited_teleport_assets"
	callLimitedReserve  = "limited_reserve_transfer_assets"
	callTransferAssets  = "transfer_assets"
)

// TransferCall is a recognized outgoing transfer: its call kind, the
// destination and beneficiary locations and the asset list. For
// CallLimitedTeleport and CallLimitedReserve the kind states the transfer
// type directly; CallTransferAssets leaves it to be derived per asset.
type TransferCall struct {
	Kind        CallKind
	Dest        Location
	Beneficiary Location
	Assets      []Asset
}

// ParseTransferCall recognizes the supported XCM transfer calls in a decoded
// extrinsic. It reports false for any other call, and for transfer calls
// whose arguments are encoded under an unsupported XCM version.
func ParseTransferCall(xt Extrinsic) (TransferCall, bool) {
	if xt.Pallet != xcmPallet {
		return TransferCall{}, false
	}
	var kind CallKind
	switch xt.Call {
	case callLimitedTeleport:
		kind = CallLimitedTeleport
	case callLimitedReserve:
		kind = CallLimitedReserve
	case callTransferAssets:
		kind = CallTransferAssets
	default:
		return TransferCall{}, false
	}

	destArg, ok := xt.Args.Field("dest")
	if !ok {
		return TransferCall{}, false
	}
	dest, ok := ParseVersionedLocation(destArg)
	if !ok {
		return TransferCall{}, false
	}
	benArg, ok := xt.Args.Field("beneficiary")
	if !ok {
		return TransferCall{}, false
	}
	beneficiary, ok := ParseVersionedLocation(benArg)
	if !ok {
		return TransferCall{}, false
	}
	assetsArg, ok := xt.Args.Field("assets")
	if !ok {
		return TransferCall{}, false
	}
	assets, ok := ParseVersionedAssets(assetsArg)
	if !ok {
		return TransferCall{}, false
	}

	return TransferCall{Kind: kind, Dest: dest, Beneficiary: beneficiary, Assets: assets}, true
}
