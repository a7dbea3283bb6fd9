package scale

import "fmt"

// Decode decodes data as the type identified by id, returning the decoded
// value and the unconsumed remainder of the buffer.
func Decode(reg *Registry, id TypeID, data []byte) (Value, []byte, error) {
	r := NewReader(data)
	v, err := DecodeReader(reg, id, r)
	if err != nil {
		return Value{}, nil, err
	}
	return v, r.Rest(), nil
}

// DecodeReader decodes a single value of the type identified by id from r.
func DecodeReader(reg *Registry, id TypeID, r *Reader) (Value, error) {
	t, err := reg.Resolve(id)
	if err != nil {
		return Value{}, err
	}
	switch t.Kind {
	case KindPrimitive:
		return decodePrimitive(t.Primitive, r)

	case KindComposite:
		fields := make([]FieldValue, 0, len(t.Fields))
		for i, f := range t.Fields {
			fv, err := DecodeReader(reg, f.Type, r)
			if err != nil {
				return Value{}, fmt.Errorf("%s.%s: %w", t.Name(), fieldLabel(f, i), err)
			}
			fields = append(fields, FieldValue{Name: f.Name, Value: fv})
		}
		return NewComposite(fields...), nil

	case KindVariant:
		idx, err := r.Byte()
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", t.Name(), err)
		}
		arm, ok := t.VariantByIndex(idx)
		if !ok {
			return Value{}, fmt.Errorf("%w: index %d in %s", ErrUnknownVariant, idx, t.Name())
		}
		fields := make([]FieldValue, 0, len(arm.Fields))
		for i, f := range arm.Fields {
			fv, err := DecodeReader(reg, f.Type, r)
			if err != nil {
				return Value{}, fmt.Errorf("%s.%s.%s: %w", t.Name(), arm.Name, fieldLabel(f, i), err)
			}
			fields = append(fields, FieldValue{Name: f.Name, Value: fv})
		}
		return NewVariant(arm.Name, arm.Index, fields...), nil

	case KindSequence:
		n, err := r.CompactUint()
		if err != nil {
			return Value{}, err
		}
		if n > uint64(r.Remaining()) {
			return Value{}, fmt.Errorf("%w: sequence of %d elements, %d bytes left", ErrShortBuffer, n, r.Remaining())
		}
		if isByteElem(reg, t.Elem) {
			b, err := r.Bytes(int(n))
			if err != nil {
				return Value{}, err
			}
			return NewBytes(b), nil
		}
		elems := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			ev, err := DecodeReader(reg, t.Elem, r)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return NewList(elems...), nil

	case KindArray:
		if isByteElem(reg, t.Elem) {
			b, err := r.Bytes(int(t.Len))
			if err != nil {
				return Value{}, err
			}
			return NewBytes(b), nil
		}
		elems := make([]Value, 0, t.Len)
		for i := uint32(0); i < t.Len; i++ {
			ev, err := DecodeReader(reg, t.Elem, r)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return NewList(elems...), nil

	case KindTuple:
		elems := make([]Value, 0, len(t.Tuple))
		for i, elemID := range t.Tuple {
			ev, err := DecodeReader(reg, elemID, r)
			if err != nil {
				return Value{}, fmt.Errorf("tuple element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return NewList(elems...), nil

	case KindCompact:
		prim, err := compactInner(reg, t.Elem)
		if err != nil {
			return Value{}, err
		}
		if prim == PrimU128 || prim == PrimU256 {
			v, err := r.CompactBig()
			if err != nil {
				return Value{}, err
			}
			return NewBig(v), nil
		}
		v, err := r.CompactUint()
		if err != nil {
			return Value{}, err
		}
		return NewUint(v), nil

	case KindBitSequence:
		nbits, err := r.CompactUint()
		if err != nil {
			return Value{}, err
		}
		b, err := r.Bytes(int((nbits + 7) / 8))
		if err != nil {
			return Value{}, err
		}
		return NewBits(b, nbits), nil
	}
	return Value{}, fmt.Errorf("%w: kind %d", ErrUnsupported, t.Kind)
}

func decodePrimitive(p Primitive, r *Reader) (Value, error) {
	switch p {
	case PrimBool:
		b, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil
	case PrimChar:
		v, err := r.Uint32()
		if err != nil {
			return Value{}, err
		}
		return NewUint(uint64(v)), nil
	case PrimStr:
		s, err := r.String()
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	case PrimU8:
		b, err := r.Byte()
		if err != nil {
			return Value{}, err
		}
		return NewUint(uint64(b)), nil
	case PrimU16:
		v, err := r.Uint16()
		if err != nil {
			return Value{}, err
		}
		return NewUint(uint64(v)), nil
	case PrimU32:
		v, err := r.Uint32()
		if err != nil {
			return Value{}, err
		}
		return NewUint(uint64(v)), nil
	case PrimU64:
		v, err := r.Uint64()
		if err != nil {
			return Value{}, err
		}
		return NewUint(v), nil
	case PrimU128:
		v, err := r.BigUint(16)
		if err != nil {
			return Value{}, err
		}
		return NewBig(v), nil
	case PrimU256:
		v, err := r.BigUint(32)
		if err != nil {
			return Value{}, err
		}
		return NewBig(v), nil
	case PrimI8:
		b, err := r.Byte()
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(int8(b))), nil
	case PrimI16:
		v, err := r.Uint16()
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(int16(v))), nil
	case PrimI32:
		v, err := r.Uint32()
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(int32(v))), nil
	case PrimI64:
		v, err := r.Uint64()
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(v)), nil
	case PrimI128:
		v, err := r.BigInt(16)
		if err != nil {
			return Value{}, err
		}
		return NewBig(v), nil
	case PrimI256:
		v, err := r.BigInt(32)
		if err != nil {
			return Value{}, err
		}
		return NewBig(v), nil
	}
	return Value{}, fmt.Errorf("%w: primitive %d", ErrUnsupported, p)
}

// compactInner resolves the integer width behind a compact wrapper, looking
// through single-field composites such as parachain id newtypes.
func compactInner(reg *Registry, id TypeID) (Primitive, error) {
	for depth := 0; depth < 8; depth++ {
		t, err := reg.Resolve(id)
		if err != nil {
			return 0, err
		}
		switch {
		case t.Kind == KindPrimitive:
			switch t.Primitive {
			case PrimU8, PrimU16, PrimU32, PrimU64, PrimU128, PrimU256:
				return t.Primitive, nil
			}
			return 0, fmt.Errorf("%w: compact of primitive %d", ErrUnsupported, t.Primitive)
		case t.Kind == KindComposite && len(t.Fields) == 1:
			id = t.Fields[0].Type
		case t.Kind == KindTuple && len(t.Tuple) == 1:
			id = t.Tuple[0]
		default:
			return 0, fmt.Errorf("%w: compact of %s", ErrUnsupported, t.Name())
		}
	}
	return 0, fmt.Errorf("%w: compact wrapper nesting too deep", ErrUnsupported)
}

func isByteElem(reg *Registry, id TypeID) bool {
	t, ok := reg.Type(id)
	return ok && t.Kind == KindPrimitive && t.Primitive == PrimU8
}

func fieldLabel(f Field, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%d", i)
}
