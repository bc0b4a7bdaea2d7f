package types

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitwiseUint256(t *testing.T) {
	var a, b Uint256
	for i := range a {
		a[i] = 0xF0
		b[i] = 0x3C
	}

	and := a.And(b)
	or := a.Or(b)
	xor := a.Xor(b)
	not := a.Not()

	assert.Equal(t, bytes.Repeat([]byte{0x30}, Uint256Length), and.Bytes())
	assert.Equal(t, bytes.Repeat([]byte{0xFC}, Uint256Length), or.Bytes())
	assert.Equal(t, bytes.Repeat([]byte{0xCC}, Uint256Length), xor.Bytes())
	assert.Equal(t, bytes.Repeat([]byte{0x0F}, Uint256Length), not.Bytes())
	// operands are untouched
	assert.Equal(t, byte(0xF0), a[0])
}

func TestBitwiseMismatchedLengthPanics(t *testing.T) {
	assert.Panics(t, func() { AndBytes(make([]byte, 32), make([]byte, 20)) })
	assert.Panics(t, func() { OrBytes(make([]byte, 16), make([]byte, 20)) })
	assert.Panics(t, func() { XorBytes(make([]byte, 1), nil) })
}

func TestZeroAndEquality(t *testing.T) {
	assert.True(t, Uint256{}.IsZero())
	assert.True(t, Address{}.IsZero())
	assert.True(t, Value{}.IsZero())

	a := BytesToAddress([]byte{1, 2, 3})
	assert.False(t, a.IsZero())
	assert.True(t, a.Equal(BytesToAddress([]byte{0, 1, 2, 3})))
	assert.Equal(t, byte(3), a[AddressLength-1])
}

func TestBytesToConversionsTruncateHighBytes(t *testing.T) {
	long := bytes.Repeat([]byte{0xAA}, 40)
	long[39] = 0x01
	u := BytesToUint256(long)
	assert.Equal(t, byte(0x01), u[31])
	assert.Equal(t, byte(0xAA), u[0])

	v := BytesToValue([]byte{0x12, 0x34})
	assert.Equal(t, ValueFromUint64(0x1234), v)
}

func TestUint256Arithmetic(t *testing.T) {
	sum, overflow := Uint256FromUint64(255).Add(Uint256FromUint64(1))
	require.False(t, overflow)
	assert.Equal(t, Uint256FromUint64(256), sum)

	ceiling := Uint256{}.Not()
	_, overflow = ceiling.Add(Uint256FromUint64(1))
	assert.True(t, overflow)

	diff, borrow := Uint256FromUint64(256).Sub(Uint256FromUint64(1))
	require.False(t, borrow)
	assert.Equal(t, Uint256FromUint64(255), diff)

	_, borrow = Uint256{}.Sub(Uint256FromUint64(1))
	assert.True(t, borrow)
}

func TestValueArithmetic(t *testing.T) {
	sum, overflow := ValueFromUint64(40).Add(ValueFromUint64(2))
	require.False(t, overflow)
	assert.Equal(t, ValueFromUint64(42), sum)
	assert.Equal(t, "42", sum.String())

	ceiling := Value{}.Not()
	_, overflow = ceiling.Add(ValueFromUint64(1))
	assert.True(t, overflow)

	diff, underflow := ValueFromUint64(10).Sub(ValueFromUint64(3))
	require.False(t, underflow)
	assert.Equal(t, ValueFromUint64(7), diff)

	_, underflow = ValueFromUint64(3).Sub(ValueFromUint64(10))
	assert.True(t, underflow)

	assert.Equal(t, -1, ValueFromUint64(1).Cmp(ValueFromUint64(2)))
	assert.Equal(t, 0, ceiling.Cmp(ceiling))
}

func TestValueFromBig(t *testing.T) {
	v, ok := ValueFromBig(uint256.NewInt(7))
	require.True(t, ok)
	assert.Equal(t, ValueFromUint64(7), v)

	_, ok = ValueFromBig(new(uint256.Int).Lsh(uint256.NewInt(1), 128))
	assert.False(t, ok)
}
