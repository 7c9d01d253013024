package movetype

import (
	"fmt"
	"strings"
)

// PrimitiveKind enumerates the non-composite Type cases.
type PrimitiveKind int

const (
	Bool PrimitiveKind = iota
	U8
	U16
	U32
	U64
	U128
	U256
	Address
	Signer
)

func (p PrimitiveKind) String() string {
	switch p {
	case Bool:
		return "bool"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case U256:
		return "u256"
	case Address:
		return "address"
	case Signer:
		return "signer"
	default:
		return "?primitive"
	}
}

// Bits returns the bit width of an unsigned integer primitive, or 0 if p
// is not an integer kind.
func (p PrimitiveKind) Bits() int {
	switch p {
	case U8:
		return 8
	case U16:
		return 16
	case U32:
		return 32
	case U64:
		return 64
	case U128:
		return 128
	case U256:
		return 256
	default:
		return 0
	}
}

// TypeTag discriminates the sum-type cases of Type.
type TypeTag int

const (
	TagPrimitive TypeTag = iota
	TagTuple
	TagVector
	TagStruct
	TagReference
	TagTypeParameter
)

// Type is the sum type described in spec.md §3. A Reference never nests
// directly: Elem of a Reference is never itself a Reference.
type Type struct {
	Tag       TypeTag
	Primitive PrimitiveKind

	// TagTuple / TagVector / TagReference
	Elems []Type // Tuple: all members. Vector/Reference: exactly one (Elems[0]).

	// TagStruct
	Module   ModuleId
	Struct   StructId
	TypeArgs []Type

	// TagReference
	Mutable bool

	// TagTypeParameter
	ParamIndex int
}

func PrimitiveType(p PrimitiveKind) Type { return Type{Tag: TagPrimitive, Primitive: p} }

func TupleType(elems ...Type) Type { return Type{Tag: TagTuple, Elems: elems} }

func VectorType(elem Type) Type { return Type{Tag: TagVector, Elems: []Type{elem}} }

func StructType(mod ModuleId, sid StructId, targs ...Type) Type {
	return Type{Tag: TagStruct, Module: mod, Struct: sid, TypeArgs: targs}
}

// ReferenceType builds a (mut) reference to inner. Panics if inner is
// itself a reference: references never nest (spec invariant).
func ReferenceType(mut bool, inner Type) Type {
	if inner.Tag == TagReference {
		panic("movetype: reference to reference")
	}
	return Type{Tag: TagReference, Mutable: mut, Elems: []Type{inner}}
}

func TypeParameter(index int) Type { return Type{Tag: TagTypeParameter, ParamIndex: index} }

// Elem returns the pointee/element type of a Vector or Reference.
func (t Type) Elem() Type { return t.Elems[0] }

// IsReference reports whether t is a Reference, and if so whether it is
// mutable.
func (t Type) IsReference() (mut bool, ok bool) {
	if t.Tag != TagReference {
		return false, false
	}
	return t.Mutable, true
}

// IsInteger reports whether t is one of U8..U256.
func (t Type) IsInteger() bool {
	return t.Tag == TagPrimitive && t.Primitive.Bits() > 0
}

// Instantiate substitutes every TypeParameter(i) appearing (recursively)
// in t with actuals[i].
func (t Type) Instantiate(actuals []Type) Type {
	switch t.Tag {
	case TagTypeParameter:
		if t.ParamIndex < 0 || t.ParamIndex >= len(actuals) {
			return t
		}
		return actuals[t.ParamIndex]
	case TagTuple:
		out := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = e.Instantiate(actuals)
		}
		return Type{Tag: TagTuple, Elems: out}
	case TagVector:
		return Type{Tag: TagVector, Elems: []Type{t.Elems[0].Instantiate(actuals)}}
	case TagReference:
		return Type{Tag: TagReference, Mutable: t.Mutable, Elems: []Type{t.Elems[0].Instantiate(actuals)}}
	case TagStruct:
		targs := make([]Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			targs[i] = a.Instantiate(actuals)
		}
		return Type{Tag: TagStruct, Module: t.Module, Struct: t.Struct, TypeArgs: targs}
	default:
		return t
	}
}

// TypeMax returns the maximum unsigned magnitude representable by t, or
// (0, false) if t is not an integer type.
func TypeMax(t Type) (max U256, ok bool) {
	if t.Tag != TagPrimitive {
		return U256{}, false
	}
	bits := t.Primitive.Bits()
	if bits == 0 {
		return U256{}, false
	}
	return MaxForBits(bits), true
}

// String renders t for diagnostics. Struct/type-parameter names require a
// Pool (and, for structs, resolving ModuleId to a display name), so those
// cases fall back to positional placeholders (module index and symbol
// index for a struct, T<index> for a type parameter).
func (t Type) String() string {
	switch t.Tag {
	case TagPrimitive:
		return t.Primitive.String()
	case TagTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TagVector:
		return "vector<" + t.Elems[0].String() + ">"
	case TagStruct:
		parts := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			parts[i] = a.String()
		}
		if len(parts) == 0 {
			return fmt.Sprintf("struct#%d.%d", t.Module, t.Struct.Sym.id)
		}
		return fmt.Sprintf("struct#%d.%d<%s>", t.Module, t.Struct.Sym.id, strings.Join(parts, ", "))
	case TagReference:
		if t.Mutable {
			return "&mut " + t.Elems[0].String()
		}
		return "&" + t.Elems[0].String()
	case TagTypeParameter:
		return fmt.Sprintf("T%d", t.ParamIndex)
	default:
		return "?type"
	}
}
