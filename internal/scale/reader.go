package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Reader consumes SCALE-encoded bytes from a buffer.
type Reader struct {
	data []byte
	off  int
}

// NewReader wraps data in a Reader. The buffer is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Rest returns the unread tail of the buffer.
func (r *Reader) Rest() []byte { return r.data[r.off:] }

// Bytes reads n raw bytes. The returned slice aliases the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 byte, have 0", ErrShortBuffer)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// Bool reads a boolean encoded as a single 0x00 or 0x01 byte.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	}
	return false, fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
}

// Uint16 reads a little-endian u16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian u32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian u64.
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// BigUint reads an unsigned little-endian integer of size bytes.
func (r *Reader) BigUint(size int) (*big.Int, error) {
	b, err := r.Bytes(size)
	if err != nil {
		return nil, err
	}
	return leToBig(b), nil
}

// BigInt reads a two's-complement little-endian integer of size bytes.
func (r *Reader) BigInt(size int) (*big.Int, error) {
	b, err := r.Bytes(size)
	if err != nil {
		return nil, err
	}
	v := leToBig(b)
	if b[size-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	return v, nil
}

// CompactUint reads a compact-encoded integer that must fit in 64 bits.
func (r *Reader) CompactUint() (uint64, error) {
	v, err := r.CompactBig()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: compact value %s in u64 position", ErrOverflow, v)
	}
	return v.Uint64(), nil
}

// CompactBig reads a compact-encoded integer of any width. Non-minimal
// encodings are rejected.
func (r *Reader) CompactBig() (*big.Int, error) {
	first, err := r.Byte()
	if err != nil {
		return nil, err
	}
	switch first & 0b11 {
	case 0b00:
		return new(big.Int).SetUint64(uint64(first >> 2)), nil
	case 0b01:
		second, err := r.Byte()
		if err != nil {
			return nil, err
		}
		v := uint64(first)>>2 | uint64(second)<<6
		if v < 1<<6 {
			return nil, fmt.Errorf("%w: two-byte mode holds %d", ErrNonCanonical, v)
		}
		return new(big.Int).SetUint64(v), nil
	case 0b10:
		rest, err := r.Bytes(3)
		if err != nil {
			return nil, err
		}
		v := uint64(first)>>2 | uint64(rest[0])<<6 | uint64(rest[1])<<14 | uint64(rest[2])<<22
		if v < 1<<14 {
			return nil, fmt.Errorf("%w: four-byte mode holds %d", ErrNonCanonical, v)
		}
		return new(big.Int).SetUint64(v), nil
	}
	n := int(first>>2) + 4
	raw, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	if raw[n-1] == 0 {
		return nil, fmt.Errorf("%w: big-integer mode with zero high byte", ErrNonCanonical)
	}
	v := leToBig(raw)
	if v.BitLen() <= 30 {
		return nil, fmt.Errorf("%w: big-integer mode holds %s", ErrNonCanonical, v)
	}
	return v, nil
}

// String reads a compact length prefix followed by that many UTF-8 bytes.
func (r *Reader) String() (string, error) {
	n, err := r.CompactUint()
	if err != nil {
		return "", err
	}
	if n > uint64(r.Remaining()) {
		return "", fmt.Errorf("%w: string of %d bytes, have %d", ErrShortBuffer, n, r.Remaining())
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func leToBig(b []byte) *big.Int {
	buf := make([]byte, len(b))
	for i, x := range b {
		buf[len(b)-1-i] = x
	}
	return new(big.Int).SetBytes(buf)
}
