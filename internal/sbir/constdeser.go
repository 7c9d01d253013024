package sbir

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
)

// DeserializeConstant decodes raw against its declared type using the
// little-endian, ULEB128-length-prefixed vector encoding the external VM
// uses for its constant pool (spec.md §6). Primitives map to same-width
// Constants, Vector(U8) to a ByteArray, Vector(Address) to an
// AddressArray, and any other vector to an element-wise Vector.
func DeserializeConstant(declared movetype.Type, raw []byte) (movetype.Constant, error) {
	c, rest, err := deserializeAt(declared, raw)
	if err != nil {
		return movetype.Constant{}, err
	}
	if len(rest) != 0 {
		return movetype.Constant{}, errors.Errorf("sbir: %d trailing bytes after constant", len(rest))
	}
	return c, nil
}

func deserializeAt(t movetype.Type, b []byte) (movetype.Constant, []byte, error) {
	if t.Tag == movetype.TagPrimitive {
		return deserializePrimitive(t.Primitive, b)
	}
	if t.Tag == movetype.TagVector {
		return deserializeVector(t.Elem(), b)
	}
	return movetype.Constant{}, nil, errors.Errorf("sbir: type %s is not constant-representable", t)
}

func deserializePrimitive(p movetype.PrimitiveKind, b []byte) (movetype.Constant, []byte, error) {
	need := func(n int) error {
		if len(b) < n {
			return errors.Errorf("sbir: need %d bytes, have %d", n, len(b))
		}
		return nil
	}
	switch p {
	case movetype.Bool:
		if err := need(1); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstBool, Bool: b[0] != 0}, b[1:], nil
	case movetype.U8:
		if err := need(1); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU8, Int: movetype.U256FromUint64(uint64(b[0]))}, b[1:], nil
	case movetype.U16:
		if err := need(2); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU16, Int: movetype.U256FromUint64(uint64(binary.LittleEndian.Uint16(b)))}, b[2:], nil
	case movetype.U32:
		if err := need(4); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU32, Int: movetype.U256FromUint64(uint64(binary.LittleEndian.Uint32(b)))}, b[4:], nil
	case movetype.U64:
		if err := need(8); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU64, Int: movetype.U256FromUint64(binary.LittleEndian.Uint64(b))}, b[8:], nil
	case movetype.U128:
		if err := need(16); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU128, Int: leToU256(b[:16])}, b[16:], nil
	case movetype.U256:
		if err := need(32); err != nil {
			return movetype.Constant{}, nil, err
		}
		return movetype.Constant{Tag: movetype.ConstU256, Int: leToU256(b[:32])}, b[32:], nil
	case movetype.Address:
		if err := need(32); err != nil {
			return movetype.Constant{}, nil, err
		}
		var addr [32]byte
		copy(addr[:], b[:32])
		return movetype.Constant{Tag: movetype.ConstAddress, Address: addr}, b[32:], nil
	default:
		return movetype.Constant{}, nil, errors.Errorf("sbir: primitive kind %s has no constant encoding", p)
	}
}

func deserializeVector(elem movetype.Type, b []byte) (movetype.Constant, []byte, error) {
	n, rest, err := readULEB128(b)
	if err != nil {
		return movetype.Constant{}, nil, err
	}
	b = rest

	if elem.Tag == movetype.TagPrimitive && elem.Primitive == movetype.U8 {
		if len(b) < int(n) {
			return movetype.Constant{}, nil, errors.Errorf("sbir: byte array declares %d bytes, have %d", n, len(b))
		}
		out := append([]byte(nil), b[:n]...)
		return movetype.Constant{Tag: movetype.ConstByteArray, Bytes: out}, b[n:], nil
	}
	if elem.Tag == movetype.TagPrimitive && elem.Primitive == movetype.Address {
		addrs := make([][32]byte, 0, n)
		for i := uint64(0); i < n; i++ {
			c, rest, err := deserializePrimitive(movetype.Address, b)
			if err != nil {
				return movetype.Constant{}, nil, err
			}
			addrs = append(addrs, c.Address)
			b = rest
		}
		return movetype.Constant{Tag: movetype.ConstAddressArray, Addresses: addrs}, b, nil
	}

	elems := make([]movetype.Constant, 0, n)
	for i := uint64(0); i < n; i++ {
		c, rest, err := deserializeAt(elem, b)
		if err != nil {
			return movetype.Constant{}, nil, err
		}
		elems = append(elems, c)
		b = rest
	}
	return movetype.Constant{Tag: movetype.ConstVector, Elems: elems}, b, nil
}

func leToU256(b []byte) movetype.U256 {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return movetype.U256FromBigEndian(be)
}

func readULEB128(b []byte) (uint64, []byte, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		byt := b[i]
		result |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			return result, b[i+1:], nil
		}
		shift += 7
		if shift >= 64 {
			return 0, nil, errors.New("sbir: uleb128 overflow")
		}
	}
	return 0, nil, errors.New("sbir: truncated uleb128")
}
