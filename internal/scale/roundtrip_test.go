package scale

import (
	"bytes"
	"math/big"
	"testing"
)

// Type ids shared by the codec tests.
const (
	tU8 TypeID = iota + 1
	tU16
	tU32
	tU64
	tU128
	tI32
	tBool
	tStr
	tAccount
	tBalance
	tVecU8
	tVecU32
	tArr4U8
	tArr2U32
	tPair
	tCompactU32
	tCompactU128
	tParaID
	tCompactParaID
	tOptionU32
	tEvent
	tBits
)

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Add(tU8, Type{Kind: KindPrimitive, Primitive: PrimU8})
	reg.Add(tU16, Type{Kind: KindPrimitive, Primitive: PrimU16})
	reg.Add(tU32, Type{Kind: KindPrimitive, Primitive: PrimU32})
	reg.Add(tU64, Type{Kind: KindPrimitive, Primitive: PrimU64})
	reg.Add(tU128, Type{Kind: KindPrimitive, Primitive: PrimU128})
	reg.Add(tI32, Type{Kind: KindPrimitive, Primitive: PrimI32})
	reg.Add(tBool, Type{Kind: KindPrimitive, Primitive: PrimBool})
	reg.Add(tStr, Type{Kind: KindPrimitive, Primitive: PrimStr})
	reg.Add(tAccount, Type{Path: []string{"sp_core", "crypto", "AccountId32"}, Kind: KindComposite, Fields: []Field{
		{Type: tArr4U8},
	}})
	reg.Add(tBalance, Type{Path: []string{"Balance"}, Kind: KindComposite, Fields: []Field{
		{Name: "free", Type: tU128},
		{Name: "flags", Type: tU32},
	}})
	reg.Add(tVecU8, Type{Kind: KindSequence, Elem: tU8})
	reg.Add(tVecU32, Type{Kind: KindSequence, Elem: tU32})
	reg.Add(tArr4U8, Type{Kind: KindArray, Elem: tU8, Len: 4})
	reg.Add(tArr2U32, Type{Kind: KindArray, Elem: tU32, Len: 2})
	reg.Add(tPair, Type{Kind: KindTuple, Tuple: []TypeID{tU16, tBool}})
	reg.Add(tCompactU32, Type{Kind: KindCompact, Elem: tU32})
	reg.Add(tCompactU128, Type{Kind: KindCompact, Elem: tU128})
	reg.Add(tParaID, Type{Path: []string{"polkadot_parachain_primitives", "primitives", "Id"}, Kind: KindComposite, Fields: []Field{
		{Type: tU32},
	}})
	reg.Add(tCompactParaID, Type{Kind: KindCompact, Elem: tParaID})
	reg.Add(tOptionU32, Type{Path: []string{"Option"}, Kind: KindVariant, Variants: []Variant{
		{Name: "None", Index: 0},
		{Name: "Some", Index: 1, Fields: []Field{{Type: tU32}}},
	}})
	reg.Add(tEvent, Type{Path: []string{"pallet_demo", "Event"}, Kind: KindVariant, Variants: []Variant{
		{Name: "Created", Index: 0, Fields: []Field{{Name: "id", Type: tU32}}},
		{Name: "Funded", Index: 2, Fields: []Field{{Name: "who", Type: tArr4U8}, {Name: "amount", Type: tU128}}},
		{Name: "Closed", Index: 7},
	}})
	reg.Add(tBits, Type{Kind: KindBitSequence, BitStore: tU8, BitOrder: tU8})
	return reg
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	reg := testRegistry()
	u128 := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatalf("bad big integer %q", s)
		}
		return v
	}

	cases := []struct {
		name    string
		id      TypeID
		encoded []byte
		want    Value
	}{
		{"u32", tU32, []byte{0x2a, 0x00, 0x00, 0x00}, NewUint(42)},
		{"u128", tU128, append([]byte{0x01, 0x02}, make([]byte, 14)...), NewBig(u128("513"))},
		{"i32 negative", tI32, []byte{0xff, 0xff, 0xff, 0xff}, NewInt(-1)},
		{"bool", tBool, []byte{0x01}, NewBool(true)},
		{"str", tStr, []byte{0x10, 'D', 'O', 'T', '!'}, NewString("DOT!")},
		{"newtype composite", tAccount, []byte{0xaa, 0xbb, 0xcc, 0xdd},
			NewComposite(FieldValue{Value: NewBytes([]byte{0xaa, 0xbb, 0xcc, 0xdd})})},
		{"named composite", tBalance, append(append([]byte{0x39, 0x30}, make([]byte, 14)...), 0x05, 0x00, 0x00, 0x00),
			NewComposite(
				FieldValue{Name: "free", Value: NewBig(u128("12345"))},
				FieldValue{Name: "flags", Value: NewUint(5)},
			)},
		{"byte sequence", tVecU8, []byte{0x0c, 0x01, 0x02, 0x03}, NewBytes([]byte{0x01, 0x02, 0x03})},
		{"empty byte sequence", tVecU8, []byte{0x00}, NewBytes([]byte{})},
		{"u32 sequence", tVecU32, []byte{0x08, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00},
			NewList(NewUint(1), NewUint(2))},
		{"byte array", tArr4U8, []byte{0x04, 0x03, 0x02, 0x01}, NewBytes([]byte{0x04, 0x03, 0x02, 0x01})},
		{"u32 array", tArr2U32, []byte{0x0a, 0x00, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00},
			NewList(NewUint(10), NewUint(20))},
		{"tuple", tPair, []byte{0x39, 0x05, 0x01}, NewList(NewUint(1337), NewBool(true))},
		{"compact u32", tCompactU32, []byte{0x15, 0x01}, NewUint(69)},
		{"compact u128", tCompactU128, []byte{0x0b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}, NewBig(u128("1099511627776"))},
		{"compact newtype", tCompactParaID, []byte{0xa9, 0x0f}, NewUint(1002)},
		{"option none", tOptionU32, []byte{0x00}, NewVariant("None", 0)},
		{"option some", tOptionU32, []byte{0x01, 0x2a, 0x00, 0x00, 0x00},
			NewVariant("Some", 1, FieldValue{Value: NewUint(42)})},
		{"variant sparse index", tEvent, []byte{0x07}, NewVariant("Closed", 7)},
		{"variant fields", tEvent, append([]byte{0x02, 0x01, 0x02, 0x03, 0x04, 0xe8, 0x03}, make([]byte, 14)...),
			NewVariant("Funded", 2,
				FieldValue{Name: "who", Value: NewBytes([]byte{0x01, 0x02, 0x03, 0x04})},
				FieldValue{Name: "amount", Value: NewBig(u128("1000"))},
			)},
		{"bit sequence", tBits, []byte{0x28, 0b10110100, 0b00000001}, NewBits([]byte{0b10110100, 0b00000001}, 10)},
	}

	for _, tc := range cases {
		got, rest, err := Decode(reg, tc.id, tc.encoded)
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if len(rest) != 0 {
			t.Fatalf("%s: %d bytes left over", tc.name, len(rest))
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%s: decoded %+v, want %+v", tc.name, got, tc.want)
		}
		back, err := Encode(reg, tc.id, got)
		if err != nil {
			t.Fatalf("%s: encode: %v", tc.name, err)
		}
		if !bytes.Equal(back, tc.encoded) {
			t.Fatalf("%s: re-encoded %x, want %x", tc.name, back, tc.encoded)
		}
	}
}

func TestDecodeLeavesRemainder(t *testing.T) {
	reg := testRegistry()
	raw := []byte{0x2a, 0x00, 0x00, 0x00, 0xde, 0xad}
	v, rest, err := Decode(reg, tU32, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Equal(NewUint(42)) {
		t.Fatalf("decoded %+v", v)
	}
	if !bytes.Equal(rest, []byte{0xde, 0xad}) {
		t.Fatalf("rest = %x", rest)
	}
}

func TestEncodeAcceptsBareNewtypeValue(t *testing.T) {
	reg := testRegistry()
	got, err := Encode(reg, tParaID, NewUint(1002))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, []byte{0xea, 0x03, 0x00, 0x00}) {
		t.Fatalf("encoded %x", got)
	}
}
