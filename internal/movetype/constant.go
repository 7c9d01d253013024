package movetype

import (
	"github.com/holiman/uint256"
)

// U256 wraps a fixed-width 256-bit unsigned integer with overflow-detecting
// arithmetic, backed by github.com/holiman/uint256 (the same type
// go-ethereum uses for EVM words).
type U256 struct {
	v uint256.Int
}

// U256FromUint64 builds a U256 from a native uint64.
func U256FromUint64(n uint64) U256 {
	var u U256
	u.v.SetUint64(n)
	return u
}

// U256FromBigEndian builds a U256 from a big-endian byte slice (at most 32
// bytes).
func U256FromBigEndian(b []byte) U256 {
	var u U256
	u.v.SetBytes(b)
	return u
}

// MaxForBits returns 2^bits - 1 as a U256, for bits in {8,16,32,64,128,256}.
func MaxForBits(bits int) U256 {
	var u U256
	if bits >= 256 {
		u.v.SetAllOne()
		return u
	}
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, uint(bits))
	u.v = *new(uint256.Int).Sub(shifted, one)
	return u
}

// Cmp compares a and b the way uint256.Int.Cmp does: -1, 0, 1.
func (a U256) Cmp(b U256) int { return a.v.Cmp(&b.v) }

func (a U256) LessThan(b U256) bool    { return a.Cmp(b) < 0 }
func (a U256) LessOrEqual(b U256) bool { return a.Cmp(b) <= 0 }

// Min/Max return whichever operand compares smaller/larger.
func MinU256(a, b U256) U256 {
	if a.LessThan(b) {
		return a
	}
	return b
}

func MaxU256(a, b U256) U256 {
	if a.LessThan(b) {
		return b
	}
	return a
}

// SaturatingAdd returns a+b, clipped to cap if the addition overflows 256
// bits or exceeds cap.
func SaturatingAdd(a, b, cap U256) U256 {
	sum, overflow := new(uint256.Int).AddOverflow(&a.v, &b.v)
	if overflow {
		return cap
	}
	var r U256
	r.v = *sum
	if cap.LessThan(r) {
		return cap
	}
	return r
}

// SaturatingMul returns a*b, clipped to cap if the multiplication overflows
// 256 bits or exceeds cap.
func SaturatingMul(a, b, cap U256) U256 {
	prod, overflow := new(uint256.Int).MulOverflow(&a.v, &b.v)
	if overflow {
		return cap
	}
	var r U256
	r.v = *prod
	if cap.LessThan(r) {
		return cap
	}
	return r
}

// SubOrFloor returns a-b if a >= b, else the zero value (callers that need
// the "leave unchanged" semantics of spec §4.6's Sub rule branch before
// calling this).
func SubOrFloor(a, b U256) U256 {
	if a.LessThan(b) {
		return U256{}
	}
	var r U256
	r.v = *new(uint256.Int).Sub(&a.v, &b.v)
	return r
}

// WrappingShl returns a << shiftBy, clipped to cap. shiftBy is taken modulo
// 256 to match the "wrapping_shl" semantics of spec §4.6.
func WrappingShl(a U256, shiftBy uint, cap U256) U256 {
	shiftBy %= 256
	r := U256{v: *new(uint256.Int).Lsh(&a.v, shiftBy)}
	if cap.LessThan(r) {
		return cap
	}
	return r
}

// LeadingZeros256 returns the number of leading zero bits in a, treating a
// as a 256-bit value (so an all-zero value reports 256).
func LeadingZeros256(a U256) int {
	return 256 - a.v.BitLen()
}

// Uint64 returns the low 64 bits of a; higher bits are dropped. It is used
// for shift amounts and for rendering constant values, so a constant wider
// than 64 bits renders truncated.
func (a U256) Uint64() uint64 { return a.v.Uint64() }

// ConstTag discriminates the Constant sum-type cases.
type ConstTag int

const (
	ConstBool ConstTag = iota
	ConstU8
	ConstU16
	ConstU32
	ConstU64
	ConstU128
	ConstU256
	ConstAddress
	ConstByteArray
	ConstAddressArray
	ConstVector
)

// Constant is the deserialized value of an LdConst operand (spec §3, §6).
type Constant struct {
	Tag ConstTag

	Bool    bool
	Int     U256 // holds the magnitude for any ConstU8..ConstU256
	Address [32]byte

	Bytes     []byte     // ConstByteArray
	Addresses [][32]byte // ConstAddressArray
	Elems     []Constant // ConstVector
}

// IntKindPrimitive maps a ConstTag integer case back to its PrimitiveKind,
// used when the lifter needs a Type for a freshly loaded constant.
func (c Constant) IntKindPrimitive() (PrimitiveKind, bool) {
	switch c.Tag {
	case ConstU8:
		return U8, true
	case ConstU16:
		return U16, true
	case ConstU32:
		return U32, true
	case ConstU64:
		return U64, true
	case ConstU128:
		return U128, true
	case ConstU256:
		return U256Kind, true
	default:
		return 0, false
	}
}

// U256Kind is an alias kept distinct from the U256 number type above so
// IntKindPrimitive reads naturally; it is exactly PrimitiveKind's U256
// constant.
const U256Kind = PrimitiveKind(6)

// UintOf returns the magnitude of c if c holds an unsigned integer
// primitive, else ok=false.
func UintOf(c Constant) (U256, bool) {
	switch c.Tag {
	case ConstU8, ConstU16, ConstU32, ConstU64, ConstU128, ConstU256:
		return c.Int, true
	default:
		return U256{}, false
	}
}
