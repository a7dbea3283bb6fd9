package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"
)

// Writer accumulates SCALE-encoded output. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// Data returns the bytes written so far.
func (w *Writer) Data() []byte { return w.buf }

// PutByte appends a single byte.
func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutBool appends a boolean as 0x00 or 0x01.
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutByte(0x01)
		return
	}
	w.PutByte(0x00)
}

// PutUintN appends v as a little-endian unsigned integer of size 1, 2, 4 or 8.
func (w *Writer) PutUintN(v uint64, size int) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	w.buf = append(w.buf, scratch[:size]...)
}

// PutBigUint appends v as an unsigned little-endian integer of size bytes.
func (w *Writer) PutBigUint(v *big.Int, size int) error {
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s in unsigned position", ErrValueShape, v)
	}
	if v.BitLen() > size*8 {
		return fmt.Errorf("%w: %s needs more than %d bytes", ErrOverflow, v, size)
	}
	w.putBigLE(v, size)
	return nil
}

// PutBigInt appends v as a two's-complement little-endian integer of size bytes.
func (w *Writer) PutBigInt(v *big.Int, size int) error {
	half := new(big.Int).Lsh(big.NewInt(1), uint(size*8-1))
	if v.Cmp(half) >= 0 || v.Cmp(new(big.Int).Neg(half)) < 0 {
		return fmt.Errorf("%w: %s does not fit i%d", ErrOverflow, v, size*8)
	}
	if v.Sign() < 0 {
		v = new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	w.putBigLE(v, size)
	return nil
}

// PutCompactUint appends v in compact encoding.
func (w *Writer) PutCompactUint(v uint64) {
	switch {
	case v < 1<<6:
		w.PutByte(byte(v << 2))
	case v < 1<<14:
		w.PutUintN(v<<2|0b01, 2)
	case v < 1<<30:
		w.PutUintN(v<<2|0b10, 4)
	default:
		n := (bits.Len64(v) + 7) / 8
		w.PutByte(byte(n-4)<<2 | 0b11)
		w.PutUintN(v, n)
	}
}

// PutCompactBig appends v in compact encoding.
func (w *Writer) PutCompactBig(v *big.Int) error {
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s in compact position", ErrValueShape, v)
	}
	if v.IsUint64() {
		w.PutCompactUint(v.Uint64())
		return nil
	}
	n := (v.BitLen() + 7) / 8
	if n > 67 {
		return fmt.Errorf("%w: compact value needs %d bytes", ErrOverflow, n)
	}
	w.PutByte(byte(n-4)<<2 | 0b11)
	w.putBigLE(v, n)
	return nil
}

// PutString appends a compact length prefix followed by the UTF-8 bytes of s.
func (w *Writer) PutString(s string) {
	w.PutCompactUint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) putBigLE(v *big.Int, size int) {
	be := v.Bytes()
	le := make([]byte, size)
	for i, x := range be {
		le[len(be)-1-i] = x
	}
	w.buf = append(w.buf, le...)
}
