package scale

import (
	"bytes"
	"math/big"
)

// ValueKind discriminates the shapes a decoded value can take.
type ValueKind uint8

const (
	ValueBool ValueKind = iota
	ValueUint
	ValueInt
	ValueBig
	ValueString
	ValueBytes
	ValueList
	ValueComposite
	ValueVariant
	ValueBits
)

// FieldValue pairs a field name with its decoded value. The name is empty for
// positional fields.
type FieldValue struct {
	Name  string
	Value Value
}

// Value is a decoded SCALE value. The representation of an integer is fixed
// by its type: widths up to 64 bits use Uint or Int, wider ones use Big.
type Value struct {
	Kind ValueKind

	Bool    bool
	Uint    uint64 // also the bit count for ValueBits
	Int     int64
	Big     *big.Int
	Str     string
	Bytes   []byte
	List    []Value
	Fields  []FieldValue
	Variant string
	Index   uint8
}

// NewBool builds a boolean value.
func NewBool(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// NewUint builds an unsigned integer value of width 64 bits or less.
func NewUint(u uint64) Value { return Value{Kind: ValueUint, Uint: u} }

// NewInt builds a signed integer value of width 64 bits or less.
func NewInt(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// NewBig builds a wide integer value.
func NewBig(b *big.Int) Value { return Value{Kind: ValueBig, Big: b} }

// NewString builds a string value.
func NewString(s string) Value { return Value{Kind: ValueString, Str: s} }

// NewBytes builds a byte-string value.
func NewBytes(b []byte) Value { return Value{Kind: ValueBytes, Bytes: b} }

// NewList builds a sequence, array or tuple value.
func NewList(vs ...Value) Value { return Value{Kind: ValueList, List: vs} }

// NewComposite builds a composite value from ordered fields.
func NewComposite(fields ...FieldValue) Value {
	return Value{Kind: ValueComposite, Fields: fields}
}

// NewVariant builds a variant value.
func NewVariant(name string, index uint8, fields ...FieldValue) Value {
	return Value{Kind: ValueVariant, Variant: name, Index: index, Fields: fields}
}

// NewBits builds a bit-sequence value holding n bits.
func NewBits(b []byte, n uint64) Value {
	return Value{Kind: ValueBits, Bytes: b, Uint: n}
}

// Field returns the named field of a composite or variant value.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// At returns the i-th element of a list value or the i-th field of a
// composite or variant value.
func (v Value) At(i int) (Value, bool) {
	switch v.Kind {
	case ValueList:
		if i >= 0 && i < len(v.List) {
			return v.List[i], true
		}
	case ValueComposite, ValueVariant:
		if i >= 0 && i < len(v.Fields) {
			return v.Fields[i].Value, true
		}
	}
	return Value{}, false
}

// Len reports the number of elements or fields of a value.
func (v Value) Len() int {
	switch v.Kind {
	case ValueList:
		return len(v.List)
	case ValueComposite, ValueVariant:
		return len(v.Fields)
	case ValueBytes:
		return len(v.Bytes)
	}
	return 0
}

// IsVariant reports whether v is a variant value with the given name.
func (v Value) IsVariant(name string) bool {
	return v.Kind == ValueVariant && v.Variant == name
}

// AsUint extracts an unsigned integer from a Uint or a Big value that fits
// 64 bits.
func (v Value) AsUint() (uint64, bool) {
	switch v.Kind {
	case ValueUint:
		return v.Uint, true
	case ValueBig:
		if v.Big != nil && v.Big.IsUint64() {
			return v.Big.Uint64(), true
		}
	}
	return 0, false
}

// AsBig extracts any integer value as a big.Int.
func (v Value) AsBig() (*big.Int, bool) {
	switch v.Kind {
	case ValueUint:
		return new(big.Int).SetUint64(v.Uint), true
	case ValueInt:
		return big.NewInt(v.Int), true
	case ValueBig:
		if v.Big != nil {
			return v.Big, true
		}
	}
	return nil, false
}

// AsBytes extracts the payload of a byte-string value.
func (v Value) AsBytes() ([]byte, bool) {
	if v.Kind == ValueBytes {
		return v.Bytes, true
	}
	return nil, false
}

// Equal reports deep structural equality between two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueBool:
		return v.Bool == o.Bool
	case ValueUint:
		return v.Uint == o.Uint
	case ValueInt:
		return v.Int == o.Int
	case ValueBig:
		if v.Big == nil || o.Big == nil {
			return v.Big == o.Big
		}
		return v.Big.Cmp(o.Big) == 0
	case ValueString:
		return v.Str == o.Str
	case ValueBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case ValueBits:
		return v.Uint == o.Uint && bytes.Equal(v.Bytes, o.Bytes)
	case ValueList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case ValueComposite, ValueVariant:
		if v.Kind == ValueVariant && (v.Variant != o.Variant || v.Index != o.Index) {
			return false
		}
		if len(v.Fields) != len(o.Fields) {
			return false
		}
		for i := range v.Fields {
			if v.Fields[i].Name != o.Fields[i].Name {
				return false
			}
			if !v.Fields[i].Value.Equal(o.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
