// Package memory validates every access a host function makes to contract linear memory.
package memory

import (
	"math"

	"github.com/ewasm/eeivm/types"
)

// Memory is the part of a wasm linear memory the host needs. wazero's api.Memory satisfies it.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// Accessor performs bounds-checked reads and writes against contract memory.
// All host functions go through it; nothing else touches the memory.
type Accessor struct {
	memory Memory
}

// New creates a new memory accessor
func New(memory Memory) *Accessor {
	return &Accessor{memory: memory}
}

// Size returns the current size of the memory in bytes.
func (a *Accessor) Size() uint32 {
	if a == nil || a.memory == nil {
		return 0
	}
	return a.memory.Size()
}

// Check validates that [offset, offset+length) lies inside the memory.
func (a *Accessor) Check(offset, length uint32) error {
	if a == nil || a.memory == nil {
		return ErrNoMemory
	}
	size := a.memory.Size()
	// Check for potential overflow in offset + length calculation
	if offset > math.MaxUint32-length {
		return &BoundsError{Offset: offset, Length: length, Size: size}
	}
	if uint64(offset)+uint64(length) > uint64(size) {
		return &BoundsError{Offset: offset, Length: length, Size: size}
	}
	return nil
}

// Read returns a copy of length bytes at offset.
func (a *Accessor) Read(offset, length uint32) ([]byte, error) {
	if err := a.Check(offset, length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	view, ok := a.memory.Read(offset, length)
	if !ok {
		return nil, ErrMemoryReadFailed
	}
	// wazero returns a view into the live memory
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

// Write stores data at offset. Nothing is written if the range is out of bounds.
func (a *Accessor) Write(offset uint32, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return &BoundsError{Offset: offset, Length: math.MaxUint32, Size: a.Size()}
	}
	if err := a.Check(offset, uint32(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if !a.memory.Write(offset, data) {
		return ErrMemoryWriteFailed
	}
	return nil
}

// WriteFrom copies source[srcOffset:srcOffset+length] to offset. Bytes past the end
// of source are written as zero; the destination range is checked strictly.
func (a *Accessor) WriteFrom(offset uint32, source []byte, srcOffset, length uint32) error {
	if err := a.Check(offset, length); err != nil {
		return err
	}
	buf := make([]byte, length)
	if uint64(srcOffset) < uint64(len(source)) {
		copy(buf, source[srcOffset:])
	}
	return a.Write(offset, buf)
}

// ReadAddress reads a 20-byte address.
func (a *Accessor) ReadAddress(offset uint32) (types.Address, error) {
	b, err := a.Read(offset, types.AddressLength)
	if err != nil {
		return types.Address{}, err
	}
	return types.Address(b), nil
}

// ReadUint256 reads a 32-byte big-endian word.
func (a *Accessor) ReadUint256(offset uint32) (types.Uint256, error) {
	b, err := a.Read(offset, types.Uint256Length)
	if err != nil {
		return types.Uint256{}, err
	}
	return types.Uint256(b), nil
}

// ReadValue reads a 16-byte big-endian amount.
func (a *Accessor) ReadValue(offset uint32) (types.Value, error) {
	b, err := a.Read(offset, types.ValueLength)
	if err != nil {
		return types.Value{}, err
	}
	return types.Value(b), nil
}
