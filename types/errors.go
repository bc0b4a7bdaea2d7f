package types

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBoundsMemory is returned when an offset/length pair does not fit in contract memory.
	ErrOutOfBoundsMemory = errors.New("out of bounds memory access")
	// ErrOutOfGas is returned when a charge exceeds the remaining gas of a frame.
	ErrOutOfGas = errors.New("out of gas")
	// ErrStaticModeViolation is returned when a state-mutating function runs under a static call.
	ErrStaticModeViolation = errors.New("static mode violation")
	// ErrInsufficientBalance is returned when a value transfer exceeds the sender balance.
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	// ErrExecutionReverted is reported for frames that ended with revert.
	ErrExecutionReverted = errors.New("execution reverted")
	// ErrDepth is returned when a call or create would exceed the maximum call depth.
	ErrDepth = errors.New("max call depth exceeded")
	// ErrContractAddressCollision is returned when create targets an address already in use.
	ErrContractAddressCollision = errors.New("contract address collision")
	// ErrMaxCodeSizeExceeded is returned when init code returns more than the allowed code size.
	ErrMaxCodeSizeExceeded = errors.New("max code size exceeded")
	// ErrInvalidTopicCount is returned when log is called with more than four topics.
	ErrInvalidTopicCount = errors.New("invalid number of log topics")
	// ErrBalanceOverflow is returned when crediting an account would overflow its 128-bit balance.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrNonceOverflow is returned when an account nonce cannot be incremented.
	ErrNonceOverflow = errors.New("nonce overflow")
	// ErrInvalidModule is returned when contract code cannot be instantiated.
	ErrInvalidModule = errors.New("invalid contract module")
)

// GasError carries the details of a failed gas charge. It matches ErrOutOfGas with errors.Is.
type GasError struct {
	Wanted    uint64
	Available uint64
}

func (e *GasError) Error() string {
	return fmt.Sprintf("out of gas: required %d, but only %d available", e.Wanted, e.Available)
}

func (e *GasError) Is(target error) bool {
	return target == ErrOutOfGas
}

// RuntimeError represents a fault of the host itself (storage engine, engine setup),
// as opposed to a contract failure that is reported through a receipt.
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
