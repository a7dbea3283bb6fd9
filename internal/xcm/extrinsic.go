package xcm

import (
	"errors"
	"fmt"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/metadata"
	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// Errors reported while decoding extrinsics.
var (
	ErrExtrinsicVersion = errors.New("xcm: unsupported extrinsic version")
	ErrExtrinsicShape   = errors.New("xcm: malformed extrinsic")
)

const extrinsicVersion = 4

// Extrinsic is the part of a decoded extrinsic the interpreter inspects:
// the signer, the call identity and the call arguments.
type Extrinsic struct {
	Signed bool
	Signer []byte // 32-byte account id, nil for unsigned or non-id addresses
	Pallet string
	Call   string
	Args   scale.Value
}

// ParseExtrinsic decodes one length-prefixed extrinsic from a block body
// against the runtime's extrinsic description. The signature envelope is
// consumed generically; only the call is kept.
func ParseExtrinsic(meta *metadata.Metadata, raw []byte) (Extrinsic, error) {
	outer := scale.NewReader(raw)
	length, err := outer.CompactUint()
	if err != nil {
		return Extrinsic{}, fmt.Errorf("%w: length prefix: %v", ErrExtrinsicShape, err)
	}
	if length > uint64(outer.Remaining()) {
		return Extrinsic{}, fmt.Errorf("%w: declares %d bytes, carries %d", ErrExtrinsicShape, length, outer.Remaining())
	}
	payload, err := outer.Bytes(int(length))
	if err != nil {
		return Extrinsic{}, err
	}

	r := scale.NewReader(payload)
	version, err := r.Byte()
	if err != nil {
		return Extrinsic{}, fmt.Errorf("%w: version byte: %v", ErrExtrinsicShape, err)
	}
	signed := version&0x80 != 0
	if version&0x7f != extrinsicVersion {
		return Extrinsic{}, fmt.Errorf("%w: v%d", ErrExtrinsicVersion, version&0x7f)
	}

	xt := Extrinsic{Signed: signed}
	if signed {
		address, err := scale.DecodeReader(meta.Registry, meta.Extrinsic.AddressType, r)
		if err != nil {
			return Extrinsic{}, fmt.Errorf("%w: address: %v", ErrExtrinsicShape, err)
		}
		if address.IsVariant("Id") {
			if inner, ok := address.At(0); ok {
				if id, ok := accountBytes(inner); ok {
					xt.Signer = id
				}
			}
		}
		if _, err := scale.DecodeReader(meta.Registry, meta.Extrinsic.SignatureType, r); err != nil {
			return Extrinsic{}, fmt.Errorf("%w: signature: %v", ErrExtrinsicShape, err)
		}
		for _, ext := range meta.Extrinsic.SignedExtensions {
			if _, err := scale.DecodeReader(meta.Registry, ext.Type, r); err != nil {
				return Extrinsic{}, fmt.Errorf("%w: extension %s: %v", ErrExtrinsicShape, ext.Name, err)
			}
		}
	}

	call, err := scale.DecodeReader(meta.Registry, meta.Extrinsic.CallType, r)
	if err != nil {
		return Extrinsic{}, fmt.Errorf("%w: call: %v", ErrExtrinsicShape, err)
	}
	if r.Remaining() != 0 {
		return Extrinsic{}, fmt.Errorf("%w: %d trailing bytes after call", ErrExtrinsicShape, r.Remaining())
	}
	if call.Kind != scale.ValueVariant {
		return Extrinsic{}, fmt.Errorf("%w: call is not a variant", ErrExtrinsicShape)
	}
	inner, ok := call.At(0)
	if !ok || inner.Kind != scale.ValueVariant {
		return Extrinsic{}, fmt.Errorf("%w: %s call has no inner variant", ErrExtrinsicShape, call.Variant)
	}

	xt.Pallet = call.Variant
	xt.Call = inner.Variant
	xt.Args = inner
	return xt, nil
}
