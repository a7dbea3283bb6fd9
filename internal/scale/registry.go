package scale

import "fmt"

// TypeID identifies a type inside a Registry.
type TypeID uint32

// TypeKind discriminates the shapes a type definition can take.
type TypeKind uint8

const (
	KindComposite TypeKind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

// Primitive enumerates the primitive types. The constant values match the
// variant indices used by the on-chain type registry.
type Primitive uint8

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

// Type describes one entry of the type registry. Which fields are meaningful
// depends on Kind.
type Type struct {
	Path   []string
	Params []TypeParam

	Kind      TypeKind
	Fields    []Field   // KindComposite
	Variants  []Variant // KindVariant
	Elem      TypeID    // KindSequence, KindArray, KindCompact
	Len       uint32    // KindArray
	Tuple     []TypeID  // KindTuple
	Primitive Primitive // KindPrimitive
	BitStore  TypeID    // KindBitSequence
	BitOrder  TypeID    // KindBitSequence
}

// TypeParam is a generic parameter of a type.
type TypeParam struct {
	Name    string
	Type    TypeID
	HasType bool
}

// Field is a named or positional member of a composite or variant.
type Field struct {
	Name     string
	Type     TypeID
	TypeName string
}

// Variant is one arm of a variant type.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
}

// Name returns the last path segment of the type, or a placeholder when the
// type is anonymous.
func (t Type) Name() string {
	if len(t.Path) == 0 {
		return "<anonymous>"
	}
	return t.Path[len(t.Path)-1]
}

// VariantByIndex looks a variant arm up by its encoded index.
func (t Type) VariantByIndex(idx uint8) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Index == idx {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByName looks a variant arm up by name.
func (t Type) VariantByName(name string) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Param returns the type bound to the named generic parameter.
func (t Type) Param(name string) (TypeID, bool) {
	for _, p := range t.Params {
		if p.Name == name && p.HasType {
			return p.Type, true
		}
	}
	return 0, false
}

// Registry holds the full set of type definitions a chain runtime publishes.
// It is populated once and read-only afterwards.
type Registry struct {
	types map[TypeID]Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[TypeID]Type)}
}

// Add registers a type definition under id, replacing any previous entry.
func (r *Registry) Add(id TypeID, t Type) {
	r.types[id] = t
}

// Type returns the definition registered under id.
func (r *Registry) Type(id TypeID) (Type, bool) {
	t, ok := r.types[id]
	return t, ok
}

// Len reports how many types are registered.
func (r *Registry) Len() int { return len(r.types) }

// Resolve returns the definition registered under id or an error naming it.
func (r *Registry) Resolve(id TypeID) (Type, error) {
	t, ok := r.types[id]
	if !ok {
		return Type{}, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return t, nil
}
