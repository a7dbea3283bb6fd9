package scale

import "fmt"

// Encode encodes v as the type identified by id. It is the inverse of Decode:
// encoding a decoded value reproduces the original bytes.
func Encode(reg *Registry, id TypeID, v Value) ([]byte, error) {
	var w Writer
	if err := EncodeWriter(reg, id, v, &w); err != nil {
		return nil, err
	}
	return w.Data(), nil
}

// EncodeWriter appends the encoding of v as the type identified by id to w.
func EncodeWriter(reg *Registry, id TypeID, v Value, w *Writer) error {
	t, err := reg.Resolve(id)
	if err != nil {
		return err
	}
	switch t.Kind {
	case KindPrimitive:
		return encodePrimitive(t.Primitive, v, w)

	case KindComposite:
		// Single-field newtypes accept the bare inner value.
		if len(t.Fields) == 1 && v.Kind != ValueComposite {
			return EncodeWriter(reg, t.Fields[0].Type, v, w)
		}
		if v.Kind != ValueComposite {
			return shapeError(t, "composite", v)
		}
		if len(v.Fields) != len(t.Fields) {
			return fmt.Errorf("%w: %s has %d fields, value has %d", ErrValueShape, t.Name(), len(t.Fields), len(v.Fields))
		}
		for i, f := range t.Fields {
			if err := EncodeWriter(reg, f.Type, v.Fields[i].Value, w); err != nil {
				return fmt.Errorf("%s.%s: %w", t.Name(), fieldLabel(f, i), err)
			}
		}
		return nil

	case KindVariant:
		if v.Kind != ValueVariant {
			return shapeError(t, "variant", v)
		}
		arm, ok := t.VariantByName(v.Variant)
		if !ok && v.Variant == "" {
			arm, ok = t.VariantByIndex(v.Index)
		}
		if !ok {
			return fmt.Errorf("%w: %q in %s", ErrUnknownVariant, v.Variant, t.Name())
		}
		if len(v.Fields) != len(arm.Fields) {
			return fmt.Errorf("%w: %s.%s has %d fields, value has %d", ErrValueShape, t.Name(), arm.Name, len(arm.Fields), len(v.Fields))
		}
		w.PutByte(arm.Index)
		for i, f := range arm.Fields {
			if err := EncodeWriter(reg, f.Type, v.Fields[i].Value, w); err != nil {
				return fmt.Errorf("%s.%s.%s: %w", t.Name(), arm.Name, fieldLabel(f, i), err)
			}
		}
		return nil

	case KindSequence:
		if b, ok := v.AsBytes(); ok && isByteElem(reg, t.Elem) {
			w.PutCompactUint(uint64(len(b)))
			w.PutBytes(b)
			return nil
		}
		if v.Kind != ValueList {
			return shapeError(t, "sequence", v)
		}
		w.PutCompactUint(uint64(len(v.List)))
		for i, ev := range v.List {
			if err := EncodeWriter(reg, t.Elem, ev, w); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case KindArray:
		if b, ok := v.AsBytes(); ok && isByteElem(reg, t.Elem) {
			if uint32(len(b)) != t.Len {
				return fmt.Errorf("%w: array of %d bytes, value has %d", ErrValueShape, t.Len, len(b))
			}
			w.PutBytes(b)
			return nil
		}
		if v.Kind != ValueList || uint32(len(v.List)) != t.Len {
			return shapeError(t, "array", v)
		}
		for i, ev := range v.List {
			if err := EncodeWriter(reg, t.Elem, ev, w); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case KindTuple:
		if v.Kind != ValueList || len(v.List) != len(t.Tuple) {
			return shapeError(t, "tuple", v)
		}
		for i, elemID := range t.Tuple {
			if err := EncodeWriter(reg, elemID, v.List[i], w); err != nil {
				return fmt.Errorf("tuple element %d: %w", i, err)
			}
		}
		return nil

	case KindCompact:
		if _, err := compactInner(reg, t.Elem); err != nil {
			return err
		}
		b, ok := v.AsBig()
		if !ok {
			return shapeError(t, "compact integer", v)
		}
		return w.PutCompactBig(b)

	case KindBitSequence:
		if v.Kind != ValueBits {
			return shapeError(t, "bit sequence", v)
		}
		w.PutCompactUint(v.Uint)
		w.PutBytes(v.Bytes)
		return nil
	}
	return fmt.Errorf("%w: kind %d", ErrUnsupported, t.Kind)
}

func encodePrimitive(p Primitive, v Value, w *Writer) error {
	switch p {
	case PrimBool:
		if v.Kind != ValueBool {
			return fmt.Errorf("%w: bool position holds kind %d", ErrValueShape, v.Kind)
		}
		w.PutBool(v.Bool)
		return nil
	case PrimStr:
		if v.Kind != ValueString {
			return fmt.Errorf("%w: string position holds kind %d", ErrValueShape, v.Kind)
		}
		w.PutString(v.Str)
		return nil
	case PrimChar:
		return encodeUint(v, 4, w)
	case PrimU8:
		return encodeUint(v, 1, w)
	case PrimU16:
		return encodeUint(v, 2, w)
	case PrimU32:
		return encodeUint(v, 4, w)
	case PrimU64:
		return encodeUint(v, 8, w)
	case PrimU128:
		return encodeBigUint(v, 16, w)
	case PrimU256:
		return encodeBigUint(v, 32, w)
	case PrimI8:
		return encodeInt(v, 1, w)
	case PrimI16:
		return encodeInt(v, 2, w)
	case PrimI32:
		return encodeInt(v, 4, w)
	case PrimI64:
		return encodeInt(v, 8, w)
	case PrimI128:
		return encodeBigInt(v, 16, w)
	case PrimI256:
		return encodeBigInt(v, 32, w)
	}
	return fmt.Errorf("%w: primitive %d", ErrUnsupported, p)
}

func encodeUint(v Value, size int, w *Writer) error {
	u, ok := v.AsUint()
	if !ok {
		return fmt.Errorf("%w: unsigned position holds kind %d", ErrValueShape, v.Kind)
	}
	if size < 8 && u >= 1<<(8*size) {
		return fmt.Errorf("%w: %d does not fit u%d", ErrOverflow, u, 8*size)
	}
	w.PutUintN(u, size)
	return nil
}

func encodeBigUint(v Value, size int, w *Writer) error {
	b, ok := v.AsBig()
	if !ok {
		return fmt.Errorf("%w: unsigned position holds kind %d", ErrValueShape, v.Kind)
	}
	return w.PutBigUint(b, size)
}

func encodeInt(v Value, size int, w *Writer) error {
	if v.Kind != ValueInt {
		return fmt.Errorf("%w: signed position holds kind %d", ErrValueShape, v.Kind)
	}
	i := v.Int
	if size < 8 {
		limit := int64(1) << (8*size - 1)
		if i >= limit || i < -limit {
			return fmt.Errorf("%w: %d does not fit i%d", ErrOverflow, i, 8*size)
		}
	}
	w.PutUintN(uint64(i), size)
	return nil
}

func encodeBigInt(v Value, size int, w *Writer) error {
	b, ok := v.AsBig()
	if !ok {
		return fmt.Errorf("%w: signed position holds kind %d", ErrValueShape, v.Kind)
	}
	return w.PutBigInt(b, size)
}

func shapeError(t Type, want string, v Value) error {
	return fmt.Errorf("%w: %s wants a %s, value has kind %d", ErrValueShape, t.Name(), want, v.Kind)
}
