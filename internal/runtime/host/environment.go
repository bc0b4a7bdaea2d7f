package host

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ewasm/eeivm/types"
)

// WorldState is the journaled account state a transaction executes against.
// *state.StateDB implements it.
type WorldState interface {
	GetBalance(addr types.Address) types.Value
	Transfer(from, to types.Address, amount types.Value) error

	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)

	GetCode(addr types.Address) []byte
	GetCodeSize(addr types.Address) int
	SetCode(addr types.Address, code []byte)
	HasCodeOrNonce(addr types.Address) bool
	CreateAccount(addr types.Address)

	GetState(addr types.Address, key types.Uint256) types.Uint256
	SetState(addr types.Address, key, value types.Uint256)

	SetTxContext(txHash types.Uint256, txIndex uint32, block uint64)
	AddLog(addr types.Address, topics []types.Uint256, data []byte)
	Logs() []*types.Log

	SelfDestruct(addr, beneficiary types.Address) error
	PendingSelfDestructs() []types.PendingSelfDestruct

	Snapshot() int
	RevertToSnapshot(revid int)
	Finalise() []types.PendingSelfDestruct
	Error() error
}

// Interpreter executes the code of a frame. It must attach the frame's
// linear memory with Frame.Attach before the code runs, and route every
// import of the ethereum module to the matching Frame method.
type Interpreter interface {
	Run(ctx context.Context, frame *Frame) error
}

// RuntimeEnvironment holds all execution context for one transaction: the
// world state, block and transaction metadata, and the stack of active frames.
// Frames are strictly nested, so it needs no locking.
type RuntimeEnvironment struct {
	State       WorldState
	Block       types.BlockContext
	Tx          types.TxContext
	Limits      types.ExecutionLimits
	Interpreter Interpreter
	Logger      zerolog.Logger

	frames []*Frame
}

// NewRuntimeEnvironment creates the environment for a single transaction.
func NewRuntimeEnvironment(state WorldState, block types.BlockContext, tx types.TxContext, limits types.ExecutionLimits, interpreter Interpreter, logger zerolog.Logger) *RuntimeEnvironment {
	if limits.MaxCallDepth == 0 {
		limits.MaxCallDepth = types.DefaultMaxCallDepth
	}
	if limits.MaxCodeSize == 0 {
		limits.MaxCodeSize = types.DefaultMaxCodeSize
	}
	return &RuntimeEnvironment{
		State:       state,
		Block:       block,
		Tx:          tx,
		Limits:      limits,
		Interpreter: interpreter,
		Logger:      logger.With().Str("module", "host").Logger(),
		frames:      make([]*Frame, 0, 16),
	}
}

// Depth returns the number of frames currently executing.
func (e *RuntimeEnvironment) Depth() int {
	return len(e.frames)
}

// Current returns the innermost executing frame, or nil.
func (e *RuntimeEnvironment) Current() *Frame {
	if len(e.frames) == 0 {
		return nil
	}
	return e.frames[len(e.frames)-1]
}

// canDescend reports whether one more frame fits under the depth limit.
func (e *RuntimeEnvironment) canDescend() bool {
	return uint32(len(e.frames)) < e.Limits.MaxCallDepth
}

func (e *RuntimeEnvironment) push(f *Frame) error {
	if !e.canDescend() {
		return fmt.Errorf("depth %d: %w", len(e.frames), types.ErrDepth)
	}
	f.depth = len(e.frames)
	e.frames = append(e.frames, f)
	return nil
}

func (e *RuntimeEnvironment) pop() {
	e.frames[len(e.frames)-1] = nil
	e.frames = e.frames[:len(e.frames)-1]
}

// run executes f to completion and classifies its outcome. Code-less
// accounts succeed immediately with empty output.
func (e *RuntimeEnvironment) run(ctx context.Context, f *Frame) types.CallResult {
	if err := e.push(f); err != nil {
		f.fail(err)
		return f.result(nil)
	}
	defer e.pop()

	var err error
	if len(f.Code) > 0 {
		err = e.Interpreter.Run(ctx, f)
	}
	res := f.result(err)
	e.Logger.Debug().
		Int("depth", f.depth).
		Str("kind", f.Kind.String()).
		Str("address", f.Address.Hex()).
		Str("status", res.Status.String()).
		Uint64("gas_used", res.GasUsed).
		Err(res.Err).
		Msg("frame completed")
	return res
}
