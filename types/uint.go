package types

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// Uint256Length is the size of storage keys, storage values, block hashes and log topics.
	Uint256Length = 32
	// AddressLength is the size of an account address.
	AddressLength = 20
	// ValueLength is the size of balances, call values and gas prices.
	ValueLength = 16
)

// Uint256 is a 256-bit unsigned integer stored big-endian.
type Uint256 [Uint256Length]byte

// Address identifies an account.
type Address [AddressLength]byte

// Value is a 128-bit unsigned amount of the smallest currency unit, stored big-endian.
// It is the canonical width for balances, call values and the transaction gas price.
type Value [ValueLength]byte

// AndBytes sets dst[i] &= src[i]. It panics if the lengths differ.
func AndBytes(dst, src []byte) {
	mustSameLength(dst, src)
	for i := range dst {
		dst[i] &= src[i]
	}
}

// OrBytes sets dst[i] |= src[i]. It panics if the lengths differ.
func OrBytes(dst, src []byte) {
	mustSameLength(dst, src)
	for i := range dst {
		dst[i] |= src[i]
	}
}

// XorBytes sets dst[i] ^= src[i]. It panics if the lengths differ.
func XorBytes(dst, src []byte) {
	mustSameLength(dst, src)
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// NotBytes inverts every byte of dst in place.
func NotBytes(dst []byte) {
	for i := range dst {
		dst[i] = ^dst[i]
	}
}

func mustSameLength(a, b []byte) {
	if len(a) != len(b) {
		panic("bitwise operation on operands of different length")
	}
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// leftPad copies b into dst aligned to the right, keeping the low-order bytes
// when b is longer than dst.
func leftPad(dst, b []byte) {
	if len(b) > len(dst) {
		b = b[len(b)-len(dst):]
	}
	copy(dst[len(dst)-len(b):], b)
}

// ---------- Uint256 ----------

// BytesToUint256 converts b to a Uint256, left-padding short input and keeping
// the low-order 32 bytes of longer input.
func BytesToUint256(b []byte) Uint256 {
	var u Uint256
	leftPad(u[:], b)
	return u
}

// Uint256FromUint64 returns v as a Uint256.
func Uint256FromUint64(v uint64) Uint256 {
	var u Uint256
	for i := 0; i < 8; i++ {
		u[Uint256Length-1-i] = byte(v >> (8 * i))
	}
	return u
}

func (u Uint256) Bytes() []byte { return u[:] }

func (u Uint256) IsZero() bool { return isZero(u[:]) }

func (u Uint256) Equal(o Uint256) bool { return u == o }

func (u Uint256) And(o Uint256) Uint256 { AndBytes(u[:], o[:]); return u }

func (u Uint256) Or(o Uint256) Uint256 { OrBytes(u[:], o[:]); return u }

func (u Uint256) Xor(o Uint256) Uint256 { XorBytes(u[:], o[:]); return u }

func (u Uint256) Not() Uint256 { NotBytes(u[:]); return u }

// Add returns u+o and whether the sum wrapped past 2^256.
func (u Uint256) Add(o Uint256) (Uint256, bool) {
	var carry uint16
	for i := Uint256Length - 1; i >= 0; i-- {
		s := uint16(u[i]) + uint16(o[i]) + carry
		u[i] = byte(s)
		carry = s >> 8
	}
	return u, carry != 0
}

// Sub returns u-o and whether the difference borrowed past zero.
func (u Uint256) Sub(o Uint256) (Uint256, bool) {
	var borrow int16
	for i := Uint256Length - 1; i >= 0; i-- {
		d := int16(u[i]) - int16(o[i]) - borrow
		if d < 0 {
			d += 256
			borrow = 1
		} else {
			borrow = 0
		}
		u[i] = byte(d)
	}
	return u, borrow != 0
}

func (u Uint256) Hex() string { return "0x" + hex.EncodeToString(u[:]) }

func (u Uint256) String() string { return u.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (u Uint256) MarshalText() ([]byte, error) { return []byte(u.Hex()), nil }

// ---------- Address ----------

// BytesToAddress converts b to an Address using the same padding rule as BytesToUint256.
func BytesToAddress(b []byte) Address {
	var a Address
	leftPad(a[:], b)
	return a
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return isZero(a[:]) }

func (a Address) Equal(o Address) bool { return a == o }

func (a Address) And(o Address) Address { AndBytes(a[:], o[:]); return a }

func (a Address) Or(o Address) Address { OrBytes(a[:], o[:]); return a }

func (a Address) Xor(o Address) Address { XorBytes(a[:], o[:]); return a }

func (a Address) Not() Address { NotBytes(a[:]); return a }

// Common converts the address to its go-ethereum representation.
func (a Address) Common() common.Address { return common.Address(a) }

// Hex returns the EIP-55 checksummed form of the address.
func (a Address) Hex() string { return a.Common().Hex() }

func (a Address) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// ---------- Value ----------

// BytesToValue converts b to a Value using the same padding rule as BytesToUint256.
func BytesToValue(b []byte) Value {
	var v Value
	leftPad(v[:], b)
	return v
}

// ValueFromUint64 returns n as a Value.
func ValueFromUint64(n uint64) Value {
	var v Value
	for i := 0; i < 8; i++ {
		v[ValueLength-1-i] = byte(n >> (8 * i))
	}
	return v
}

// ValueFromBig converts x to a Value. ok is false if x does not fit in 128 bits.
func ValueFromBig(x *uint256.Int) (v Value, ok bool) {
	if x.BitLen() > ValueLength*8 {
		return Value{}, false
	}
	b := x.Bytes32()
	copy(v[:], b[Uint256Length-ValueLength:])
	return v, true
}

func (v Value) Bytes() []byte { return v[:] }

func (v Value) IsZero() bool { return isZero(v[:]) }

func (v Value) Equal(o Value) bool { return v == o }

func (v Value) And(o Value) Value { AndBytes(v[:], o[:]); return v }

func (v Value) Or(o Value) Value { OrBytes(v[:], o[:]); return v }

func (v Value) Xor(o Value) Value { XorBytes(v[:], o[:]); return v }

func (v Value) Not() Value { NotBytes(v[:]); return v }

// Big returns v as a uint256.Int.
func (v Value) Big() *uint256.Int {
	return new(uint256.Int).SetBytes(v[:])
}

// Cmp compares v and o as unsigned integers.
func (v Value) Cmp(o Value) int {
	return v.Big().Cmp(o.Big())
}

// Add returns v+o. overflow is true if the sum does not fit in 128 bits,
// in which case the returned value is meaningless.
func (v Value) Add(o Value) (sum Value, overflow bool) {
	s := new(uint256.Int).Add(v.Big(), o.Big())
	sum, ok := ValueFromBig(s)
	return sum, !ok
}

// Sub returns v-o. underflow is true if o > v.
func (v Value) Sub(o Value) (diff Value, underflow bool) {
	d, under := new(uint256.Int).SubOverflow(v.Big(), o.Big())
	if under {
		return Value{}, true
	}
	diff, _ = ValueFromBig(d)
	return diff, false
}

func (v Value) Hex() string { return "0x" + hex.EncodeToString(v[:]) }

// String renders v in decimal.
func (v Value) String() string { return v.Big().Dec() }

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
