package host

import (
	"errors"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/internal/runtime/memory"
	"github.com/ewasm/eeivm/types"
)

// ErrHalt is returned by EEI functions once the frame has stopped, either
// through return, revert or selfDestruct, or because of a fatal error.
// The interpreter must stop executing the frame when it sees it.
var ErrHalt = errors.New("frame halted")

// CallKind is how a frame was entered.
type CallKind uint8

const (
	KindCall CallKind = iota
	KindCallCode
	KindCallDelegate
	KindCallStatic
	KindCreate
)

func (k CallKind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindCallCode:
		return "callCode"
	case KindCallDelegate:
		return "callDelegate"
	case KindCallStatic:
		return "callStatic"
	case KindCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Frame is the execution context of one activation of contract code.
// Input and Code never change while the frame runs.
type Frame struct {
	env *RuntimeEnvironment

	Kind CallKind
	// Address is the account whose storage and balance the frame acts on.
	Address types.Address
	Caller  types.Address
	// CodeAddress is the account the code was loaded from.
	CodeAddress types.Address
	Value       types.Value
	Input       []byte
	Code        []byte
	// Static is inherited by every descendant and can never be cleared.
	Static bool
	Gas    *gas.Meter
	// ReturnData is the output of the most recently completed child.
	ReturnData []byte

	mem   *memory.Accessor
	depth int

	halted bool
	status types.Status
	output []byte
	err    error
}

// Attach binds the linear memory of the running module to the frame.
func (f *Frame) Attach(mem memory.Memory) {
	f.mem = memory.New(mem)
}

// Env returns the transaction environment the frame runs in.
func (f *Frame) Env() *RuntimeEnvironment {
	return f.env
}

// Depth is the position of the frame in the call stack, zero for the transaction frame.
func (f *Frame) Depth() int {
	return f.depth
}

func (f *Frame) Halted() bool {
	return f.halted
}

// begin is the prologue of every EEI function: it refuses calls on a
// halted frame and charges cost up front.
func (f *Frame) begin(cost uint64) error {
	if f.halted {
		return ErrHalt
	}
	return f.check(f.Gas.Charge(cost))
}

// check turns a non-nil error into a frame failure.
func (f *Frame) check(err error) error {
	if err != nil {
		return f.fail(err)
	}
	return nil
}

// fail halts the frame with Failure. All of its gas is forfeited.
func (f *Frame) fail(err error) error {
	if f.halted {
		return err
	}
	f.halted = true
	f.status = types.StatusFailure
	f.output = nil
	f.err = err
	f.Gas.Exhaust()
	return err
}

func (f *Frame) halt(status types.Status, output []byte) error {
	f.halted = true
	f.status = status
	f.output = output
	if status == types.StatusRevert {
		f.err = types.ErrExecutionReverted
	}
	return ErrHalt
}

// result closes the frame. runErr is what the interpreter returned; it is
// ignored if the frame already halted through an EEI call. A module that
// simply returns from main succeeds with empty output.
func (f *Frame) result(runErr error) types.CallResult {
	if !f.halted {
		if runErr != nil {
			f.fail(runErr)
		} else {
			f.halt(types.StatusSuccess, nil)
		}
	}
	res := types.CallResult{
		Status:  f.status,
		Output:  f.output,
		GasUsed: f.Gas.GasConsumed(),
		Err:     f.err,
	}
	if f.status != types.StatusFailure {
		res.GasLeft = f.Gas.GasRemaining()
	}
	return res
}
