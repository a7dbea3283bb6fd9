package scale

import "errors"

// Errors reported by the codec.
var (
	ErrShortBuffer    = errors.New("scale: unexpected end of input")
	ErrNonCanonical   = errors.New("scale: compact integer not minimally encoded")
	ErrInvalidBool    = errors.New("scale: invalid boolean byte")
	ErrOverflow       = errors.New("scale: integer overflows target width")
	ErrUnknownType    = errors.New("scale: unknown type id")
	ErrUnknownVariant = errors.New("scale: unknown variant")
	ErrUnsupported    = errors.New("scale: unsupported type definition")
	ErrValueShape     = errors.New("scale: value does not match type definition")
)
