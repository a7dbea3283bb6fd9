package metadata

import (
	"fmt"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// Parse decodes a metadata blob as published by the chain (magic prefix plus
// versioned payload). Versions 14 and 15 are supported. Trailing sections a
// newer payload may carry after the parts the indexer uses are ignored.
func Parse(data []byte) (*Metadata, error) {
	r := scale.NewReader(data)
	magic, err := r.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if string(magic) != "meta" {
		return nil, fmt.Errorf("%w: got 0x%x", ErrBadMagic, magic)
	}
	version, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m *Metadata
	switch version {
	case 14:
		m, err = parseBody(r, false)
	case 15:
		m, err = parseBody(r, true)
	default:
		return nil, fmt.Errorf("%w: V%d", ErrUnsupportedVersion, version)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m.Version = version
	m.index()
	return m, nil
}

func parseBody(r *scale.Reader, v15 bool) (*Metadata, error) {
	reg, err := parseRegistry(r)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}

	n, err := r.CompactUint()
	if err != nil {
		return nil, fmt.Errorf("pallet count: %w", err)
	}
	pallets := make([]Pallet, 0, n)
	for i := uint64(0); i < n; i++ {
		p, err := parsePallet(r, v15)
		if err != nil {
			return nil, fmt.Errorf("pallet %d: %w", i, err)
		}
		pallets = append(pallets, p)
	}

	var ext Extrinsic
	if v15 {
		ext, err = parseExtrinsicV15(r)
	} else {
		ext, err = parseExtrinsicV14(r, reg)
	}
	if err != nil {
		return nil, fmt.Errorf("extrinsic: %w", err)
	}

	// Runtime type id closes the portion of the payload the indexer reads.
	if _, err := parseTypeID(r); err != nil {
		return nil, fmt.Errorf("runtime type: %w", err)
	}

	return &Metadata{Registry: reg, Pallets: pallets, Extrinsic: ext}, nil
}

func parseRegistry(r *scale.Reader) (*scale.Registry, error) {
	n, err := r.CompactUint()
	if err != nil {
		return nil, err
	}
	reg := scale.NewRegistry()
	for i := uint64(0); i < n; i++ {
		id, err := r.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("type %d id: %w", i, err)
		}
		t, err := parseType(r)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", id, err)
		}
		reg.Add(scale.TypeID(id), t)
	}
	return reg, nil
}

func parseType(r *scale.Reader) (scale.Type, error) {
	var t scale.Type
	path, err := parseStrings(r)
	if err != nil {
		return t, fmt.Errorf("path: %w", err)
	}
	t.Path = path

	nparams, err := r.CompactUint()
	if err != nil {
		return t, err
	}
	for i := uint64(0); i < nparams; i++ {
		var p scale.TypeParam
		if p.Name, err = r.String(); err != nil {
			return t, fmt.Errorf("param %d: %w", i, err)
		}
		if p.Type, p.HasType, err = parseOptionTypeID(r); err != nil {
			return t, fmt.Errorf("param %s: %w", p.Name, err)
		}
		t.Params = append(t.Params, p)
	}

	kind, err := r.Byte()
	if err != nil {
		return t, err
	}
	switch kind {
	case 0:
		t.Kind = scale.KindComposite
		if t.Fields, err = parseFields(r); err != nil {
			return t, err
		}
	case 1:
		t.Kind = scale.KindVariant
		nvars, err := r.CompactUint()
		if err != nil {
			return t, err
		}
		for i := uint64(0); i < nvars; i++ {
			var v scale.Variant
			if v.Name, err = r.String(); err != nil {
				return t, fmt.Errorf("variant %d: %w", i, err)
			}
			if v.Fields, err = parseFields(r); err != nil {
				return t, fmt.Errorf("variant %s: %w", v.Name, err)
			}
			if v.Index, err = r.Byte(); err != nil {
				return t, fmt.Errorf("variant %s: %w", v.Name, err)
			}
			if err = skipStrings(r); err != nil {
				return t, fmt.Errorf("variant %s docs: %w", v.Name, err)
			}
			t.Variants = append(t.Variants, v)
		}
	case 2:
		t.Kind = scale.KindSequence
		if t.Elem, err = parseTypeID(r); err != nil {
			return t, err
		}
	case 3:
		t.Kind = scale.KindArray
		if t.Len, err = r.Uint32(); err != nil {
			return t, err
		}
		if t.Elem, err = parseTypeID(r); err != nil {
			return t, err
		}
	case 4:
		t.Kind = scale.KindTuple
		nelems, err := r.CompactUint()
		if err != nil {
			return t, err
		}
		for i := uint64(0); i < nelems; i++ {
			id, err := parseTypeID(r)
			if err != nil {
				return t, err
			}
			t.Tuple = append(t.Tuple, id)
		}
	case 5:
		t.Kind = scale.KindPrimitive
		p, err := r.Byte()
		if err != nil {
			return t, err
		}
		if p > uint8(scale.PrimI256) {
			return t, fmt.Errorf("unknown primitive %d", p)
		}
		t.Primitive = scale.Primitive(p)
	case 6:
		t.Kind = scale.KindCompact
		if t.Elem, err = parseTypeID(r); err != nil {
			return t, err
		}
	case 7:
		t.Kind = scale.KindBitSequence
		if t.BitStore, err = parseTypeID(r); err != nil {
			return t, err
		}
		if t.BitOrder, err = parseTypeID(r); err != nil {
			return t, err
		}
	default:
		return t, fmt.Errorf("unknown type definition %d", kind)
	}

	if err := skipStrings(r); err != nil {
		return t, fmt.Errorf("docs: %w", err)
	}
	return t, nil
}

func parseFields(r *scale.Reader) ([]scale.Field, error) {
	n, err := r.CompactUint()
	if err != nil {
		return nil, err
	}
	fields := make([]scale.Field, 0, n)
	for i := uint64(0); i < n; i++ {
		var f scale.Field
		if f.Name, _, err = parseOptionString(r); err != nil {
			return nil, fmt.Errorf("field %d name: %w", i, err)
		}
		if f.Type, err = parseTypeID(r); err != nil {
			return nil, fmt.Errorf("field %d type: %w", i, err)
		}
		if f.TypeName, _, err = parseOptionString(r); err != nil {
			return nil, fmt.Errorf("field %d type name: %w", i, err)
		}
		if err = skipStrings(r); err != nil {
			return nil, fmt.Errorf("field %d docs: %w", i, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parsePallet(r *scale.Reader, v15 bool) (Pallet, error) {
	var p Pallet
	var err error
	if p.Name, err = r.String(); err != nil {
		return p, err
	}

	hasStorage, err := r.Bool()
	if err != nil {
		return p, fmt.Errorf("%s storage flag: %w", p.Name, err)
	}
	if hasStorage {
		s, err := parseStorage(r)
		if err != nil {
			return p, fmt.Errorf("%s storage: %w", p.Name, err)
		}
		p.Storage = s
	}

	if p.HasCalls, p.CallType, err = parseOptionTypeRef(r); err != nil {
		return p, fmt.Errorf("%s calls: %w", p.Name, err)
	}
	if p.HasEvents, p.EventType, err = parseOptionTypeRef(r); err != nil {
		return p, fmt.Errorf("%s event: %w", p.Name, err)
	}

	nconst, err := r.CompactUint()
	if err != nil {
		return p, err
	}
	for i := uint64(0); i < nconst; i++ {
		if _, err = r.String(); err != nil {
			return p, fmt.Errorf("%s constant %d: %w", p.Name, i, err)
		}
		if _, err = parseTypeID(r); err != nil {
			return p, err
		}
		if err = skipByteVec(r); err != nil {
			return p, err
		}
		if err = skipStrings(r); err != nil {
			return p, err
		}
	}

	if _, _, err = parseOptionTypeRef(r); err != nil {
		return p, fmt.Errorf("%s error type: %w", p.Name, err)
	}
	if p.Index, err = r.Byte(); err != nil {
		return p, err
	}
	if v15 {
		if err = skipStrings(r); err != nil {
			return p, fmt.Errorf("%s docs: %w", p.Name, err)
		}
	}
	return p, nil
}

func parseStorage(r *scale.Reader) (*Storage, error) {
	s := &Storage{Entries: make(map[string]StorageEntry)}
	var err error
	if s.Prefix, err = r.String(); err != nil {
		return nil, err
	}
	n, err := r.CompactUint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		var e StorageEntry
		if e.Name, err = r.String(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		modifier, err := r.Byte()
		if err != nil {
			return nil, err
		}
		if modifier > 1 {
			return nil, fmt.Errorf("entry %s: unknown modifier %d", e.Name, modifier)
		}
		kind, err := r.Byte()
		if err != nil {
			return nil, err
		}
		switch kind {
		case 0:
			e.Plain = true
			if e.Value, err = parseTypeID(r); err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.Name, err)
			}
		case 1:
			nh, err := r.CompactUint()
			if err != nil {
				return nil, err
			}
			for j := uint64(0); j < nh; j++ {
				h, err := r.Byte()
				if err != nil {
					return nil, err
				}
				if h > uint8(HasherIdentity) {
					return nil, fmt.Errorf("entry %s: unknown hasher %d", e.Name, h)
				}
				e.Hashers = append(e.Hashers, Hasher(h))
			}
			if e.Key, err = parseTypeID(r); err != nil {
				return nil, fmt.Errorf("entry %s key: %w", e.Name, err)
			}
			if e.Value, err = parseTypeID(r); err != nil {
				return nil, fmt.Errorf("entry %s value: %w", e.Name, err)
			}
		default:
			return nil, fmt.Errorf("entry %s: unknown storage kind %d", e.Name, kind)
		}
		nd, err := r.CompactUint()
		if err != nil {
			return nil, err
		}
		if e.Default, err = r.Bytes(int(nd)); err != nil {
			return nil, fmt.Errorf("entry %s default: %w", e.Name, err)
		}
		if err = skipStrings(r); err != nil {
			return nil, fmt.Errorf("entry %s docs: %w", e.Name, err)
		}
		s.Entries[e.Name] = e
	}
	return s, nil
}

func parseExtrinsicV14(r *scale.Reader, reg *scale.Registry) (Extrinsic, error) {
	var e Extrinsic
	ty, err := parseTypeID(r)
	if err != nil {
		return e, err
	}
	if e.Version, err = r.Byte(); err != nil {
		return e, err
	}
	if e.SignedExtensions, err = parseSignedExtensions(r); err != nil {
		return e, err
	}

	// The address, call, signature and extra types hang off the generic
	// parameters of the extrinsic type.
	t, err := reg.Resolve(ty)
	if err != nil {
		return e, err
	}
	e.AddressType, _ = t.Param("Address")
	e.CallType, _ = t.Param("Call")
	e.SignatureType, _ = t.Param("Signature")
	e.ExtraType, _ = t.Param("Extra")
	return e, nil
}

func parseExtrinsicV15(r *scale.Reader) (Extrinsic, error) {
	var e Extrinsic
	var err error
	if e.Version, err = r.Byte(); err != nil {
		return e, err
	}
	if e.AddressType, err = parseTypeID(r); err != nil {
		return e, err
	}
	if e.CallType, err = parseTypeID(r); err != nil {
		return e, err
	}
	if e.SignatureType, err = parseTypeID(r); err != nil {
		return e, err
	}
	if e.ExtraType, err = parseTypeID(r); err != nil {
		return e, err
	}
	if e.SignedExtensions, err = parseSignedExtensions(r); err != nil {
		return e, err
	}
	return e, nil
}

func parseSignedExtensions(r *scale.Reader) ([]SignedExtension, error) {
	n, err := r.CompactUint()
	if err != nil {
		return nil, err
	}
	exts := make([]SignedExtension, 0, n)
	for i := uint64(0); i < n; i++ {
		var se SignedExtension
		if se.Name, err = r.String(); err != nil {
			return nil, fmt.Errorf("extension %d: %w", i, err)
		}
		if se.Type, err = parseTypeID(r); err != nil {
			return nil, fmt.Errorf("extension %s: %w", se.Name, err)
		}
		if se.AdditionalSigned, err = parseTypeID(r); err != nil {
			return nil, fmt.Errorf("extension %s: %w", se.Name, err)
		}
		exts = append(exts, se)
	}
	return exts, nil
}

func parseTypeID(r *scale.Reader) (scale.TypeID, error) {
	id, err := r.CompactUint()
	if err != nil {
		return 0, err
	}
	return scale.TypeID(id), nil
}

func parseOptionTypeID(r *scale.Reader) (scale.TypeID, bool, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return 0, false, err
	}
	id, err := parseTypeID(r)
	return id, err == nil, err
}

// parseOptionTypeRef reads an optional single-field wrapper around a type id,
// the shape pallet call/event/error references use.
func parseOptionTypeRef(r *scale.Reader) (bool, scale.TypeID, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return false, 0, err
	}
	id, err := parseTypeID(r)
	if err != nil {
		return false, 0, err
	}
	return true, id, nil
}

func parseOptionString(r *scale.Reader) (string, bool, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return "", false, err
	}
	s, err := r.String()
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func parseStrings(r *scale.Reader) ([]string, error) {
	n, err := r.CompactUint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func skipStrings(r *scale.Reader) error {
	_, err := parseStrings(r)
	return err
}

func skipByteVec(r *scale.Reader) error {
	n, err := r.CompactUint()
	if err != nil {
		return err
	}
	_, err = r.Bytes(int(n))
	return err
}
