package memory

import (
	"errors"
	"fmt"

	"github.com/ewasm/eeivm/types"
)

var (
	// ErrMemoryReadFailed is returned when the engine refuses a read that passed the bounds check.
	ErrMemoryReadFailed = errors.New("memory read failed")
	// ErrMemoryWriteFailed is returned when the engine refuses a write that passed the bounds check.
	ErrMemoryWriteFailed = errors.New("memory write failed")
	// ErrNoMemory is returned when a frame touches memory before the interpreter attached any.
	ErrNoMemory = errors.New("contract memory not attached")
)

// BoundsError describes a rejected access. It matches types.ErrOutOfBoundsMemory with errors.Is.
type BoundsError struct {
	Offset uint32
	Length uint32
	Size   uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("out of bounds memory access: offset=%d, length=%d, memory_size=%d", e.Offset, e.Length, e.Size)
}

func (e *BoundsError) Is(target error) bool {
	return target == types.ErrOutOfBoundsMemory
}
