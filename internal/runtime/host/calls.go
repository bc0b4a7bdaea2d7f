package host

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

// callRequest is a decoded call-family invocation.
type callRequest struct {
	kind   CallKind
	gas    uint64
	target types.Address
	value  types.Value
	input  []byte
}

// Call executes the code at the address read from addressOffset in that
// account's context, after transferring the value at valueOffset to it.
// The i64 gas argument is taken as unsigned and capped by Meter.Forward.
func (f *Frame) Call(ctx context.Context, gasLimit int64, addressOffset, valueOffset, dataOffset, dataLength uint32) (uint32, error) {
	return f.valueCall(ctx, KindCall, gasLimit, addressOffset, valueOffset, dataOffset, dataLength)
}

// CallCode executes foreign code against the storage and balance of the
// executing account.
func (f *Frame) CallCode(ctx context.Context, gasLimit int64, addressOffset, valueOffset, dataOffset, dataLength uint32) (uint32, error) {
	return f.valueCall(ctx, KindCallCode, gasLimit, addressOffset, valueOffset, dataOffset, dataLength)
}

func (f *Frame) valueCall(ctx context.Context, kind CallKind, gasLimit int64, addressOffset, valueOffset, dataOffset, dataLength uint32) (uint32, error) {
	if err := f.begin(gas.CostCall); err != nil {
		return 0, err
	}
	addr, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return 0, f.fail(err)
	}
	value, err := f.mem.ReadValue(valueOffset)
	if err != nil {
		return 0, f.fail(err)
	}
	input, err := f.mem.Read(dataOffset, dataLength)
	if err != nil {
		return 0, f.fail(err)
	}
	if !value.IsZero() {
		if kind == KindCall {
			if err := f.requireMutable("call with value"); err != nil {
				return 0, err
			}
		}
		if err := f.check(f.Gas.Charge(gas.CostCallValue)); err != nil {
			return 0, err
		}
	}
	status := f.dispatch(ctx, callRequest{
		kind:   kind,
		gas:    uint64(gasLimit),
		target: addr,
		value:  value,
		input:  input,
	})
	return uint32(status), nil
}

// CallDelegate executes foreign code with the caller and value of the
// executing frame. No value moves.
func (f *Frame) CallDelegate(ctx context.Context, gasLimit int64, addressOffset, dataOffset, dataLength uint32) (uint32, error) {
	return f.plainCall(ctx, KindCallDelegate, gasLimit, addressOffset, dataOffset, dataLength)
}

// CallStatic is a call without value whose child and all of its
// descendants run in static mode.
func (f *Frame) CallStatic(ctx context.Context, gasLimit int64, addressOffset, dataOffset, dataLength uint32) (uint32, error) {
	return f.plainCall(ctx, KindCallStatic, gasLimit, addressOffset, dataOffset, dataLength)
}

func (f *Frame) plainCall(ctx context.Context, kind CallKind, gasLimit int64, addressOffset, dataOffset, dataLength uint32) (uint32, error) {
	if err := f.begin(gas.CostCall); err != nil {
		return 0, err
	}
	addr, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return 0, f.fail(err)
	}
	input, err := f.mem.Read(dataOffset, dataLength)
	if err != nil {
		return 0, f.fail(err)
	}
	status := f.dispatch(ctx, callRequest{
		kind:   kind,
		gas:    uint64(gasLimit),
		target: addr,
		input:  input,
	})
	return uint32(status), nil
}

// child builds the frame a call request runs in.
func (f *Frame) child(req callRequest) *Frame {
	c := &Frame{
		env:         f.env,
		Kind:        req.kind,
		CodeAddress: req.target,
		Input:       req.input,
		Code:        f.env.State.GetCode(req.target),
		Static:      f.Static,
	}
	switch req.kind {
	case KindCall:
		c.Address, c.Caller, c.Value = req.target, f.Address, req.value
	case KindCallCode:
		c.Address, c.Caller, c.Value = f.Address, f.Address, req.value
	case KindCallDelegate:
		c.Address, c.Caller, c.Value = f.Address, f.Caller, f.Value
	case KindCallStatic:
		c.Address, c.Caller = req.target, f.Address
		c.Static = true
	}
	return c
}

// dispatch runs a call request as a child frame. Depth and balance are
// checked before anything changes; a refused call never creates a frame.
func (f *Frame) dispatch(ctx context.Context, req callRequest) types.Status {
	env := f.env
	if !env.canDescend() {
		return f.refuse(req.kind, types.ErrDepth)
	}
	if req.kind == KindCall || req.kind == KindCallCode {
		if env.State.GetBalance(f.Address).Cmp(req.value) < 0 {
			return f.refuse(req.kind, types.ErrInsufficientBalance)
		}
	}

	c := f.child(req)
	snapshot := env.State.Snapshot()
	var err error
	switch req.kind {
	case KindCall:
		err = env.State.Transfer(f.Address, req.target, req.value)
	case KindCallCode:
		err = env.State.Transfer(f.Address, f.Address, req.value)
	}
	if err != nil {
		env.State.RevertToSnapshot(snapshot)
		return f.refuse(req.kind, err)
	}

	forwarded := f.Gas.Forward(req.gas)
	c.Gas = gas.NewMeter(forwarded)
	return f.complete(env.run(ctx, c), forwarded, snapshot)
}

// complete folds a finished child back into f: unused gas is returned
// unless the child failed, state is rolled back unless it succeeded, and
// the return-data buffer is replaced.
func (f *Frame) complete(res types.CallResult, forwarded uint64, snapshot int) types.Status {
	f.Gas.Settle(forwarded, res.GasLeft)
	if res.Status != types.StatusSuccess {
		f.env.State.RevertToSnapshot(snapshot)
	}
	if res.Status == types.StatusFailure {
		f.ReturnData = nil
	} else {
		f.ReturnData = res.Output
	}
	return res.Status
}

func (f *Frame) refuse(kind CallKind, err error) types.Status {
	f.ReturnData = nil
	f.env.Logger.Debug().
		Int("depth", f.depth).
		Str("kind", kind.String()).
		Err(err).
		Msg("call refused")
	return types.StatusFailure
}

// Create deploys the init code at dataOffset as a new contract funded with
// the value at valueOffset and writes the new address to resultOffset on
// success.
func (f *Frame) Create(ctx context.Context, valueOffset, dataOffset, length, resultOffset uint32) (uint32, error) {
	if err := f.begin(gas.CostCreate); err != nil {
		return 0, err
	}
	if err := f.requireMutable("create"); err != nil {
		return 0, err
	}
	value, err := f.mem.ReadValue(valueOffset)
	if err != nil {
		return 0, f.fail(err)
	}
	initCode, err := f.mem.Read(dataOffset, length)
	if err != nil {
		return 0, f.fail(err)
	}
	if err := f.mem.Check(resultOffset, types.AddressLength); err != nil {
		return 0, f.fail(err)
	}

	addr, status := f.create(ctx, value, initCode)
	if status == types.StatusSuccess {
		if err := f.check(f.mem.Write(resultOffset, addr.Bytes())); err != nil {
			return 0, err
		}
	}
	return uint32(status), nil
}

func (f *Frame) create(ctx context.Context, value types.Value, initCode []byte) (types.Address, types.Status) {
	env := f.env
	if !env.canDescend() {
		return types.Address{}, f.refuse(KindCreate, types.ErrDepth)
	}
	if env.State.GetBalance(f.Address).Cmp(value) < 0 {
		return types.Address{}, f.refuse(KindCreate, types.ErrInsufficientBalance)
	}
	addr, err := env.newContractAddress(f.Address)
	if err != nil {
		return types.Address{}, f.refuse(KindCreate, err)
	}

	snapshot := env.State.Snapshot()
	if err := env.prepareContract(f.Address, addr, value); err != nil {
		env.State.RevertToSnapshot(snapshot)
		return types.Address{}, f.refuse(KindCreate, err)
	}
	c := &Frame{
		env:         env,
		Kind:        KindCreate,
		Address:     addr,
		Caller:      f.Address,
		CodeAddress: addr,
		Value:       value,
		Code:        initCode,
	}
	forwarded := f.Gas.Forward(math.MaxUint64)
	c.Gas = gas.NewMeter(forwarded)
	return addr, f.complete(env.deploy(ctx, c), forwarded, snapshot)
}

// newContractAddress derives the address of the next contract created by
// creator and bumps its nonce. The nonce stays bumped even when the
// address collides.
func (e *RuntimeEnvironment) newContractAddress(creator types.Address) (types.Address, error) {
	nonce := e.State.GetNonce(creator)
	if nonce == math.MaxUint64 {
		return types.Address{}, fmt.Errorf("creator %s: %w", creator, types.ErrNonceOverflow)
	}
	e.State.SetNonce(creator, nonce+1)
	addr := types.Address(crypto.CreateAddress(creator.Common(), nonce))
	if e.State.HasCodeOrNonce(addr) {
		return addr, fmt.Errorf("create %s: %w", addr, types.ErrContractAddressCollision)
	}
	return addr, nil
}

// prepareContract opens a fresh account at addr and funds it.
func (e *RuntimeEnvironment) prepareContract(creator, addr types.Address, value types.Value) error {
	e.State.CreateAccount(addr)
	e.State.SetNonce(addr, 1)
	return e.State.Transfer(creator, addr, value)
}

// deploy runs init code and stores its output as the code of the new
// account. Output larger than MaxCodeSize, or too expensive to store,
// turns the creation into a Failure.
func (e *RuntimeEnvironment) deploy(ctx context.Context, f *Frame) types.CallResult {
	res := e.run(ctx, f)
	if res.Status != types.StatusSuccess {
		return res
	}
	code := res.Output
	var err error
	if uint64(len(code)) > uint64(e.Limits.MaxCodeSize) {
		err = fmt.Errorf("code of %d bytes: %w", len(code), types.ErrMaxCodeSizeExceeded)
	} else {
		err = f.Gas.Charge(gas.CostCodeDeposit * uint64(len(code)))
	}
	if err != nil {
		f.Gas.Exhaust()
		return types.CallResult{
			Status:  types.StatusFailure,
			GasUsed: f.Gas.GasConsumed(),
			Err:     err,
		}
	}
	e.State.SetCode(f.Address, code)
	res.GasUsed = f.Gas.GasConsumed()
	res.GasLeft = f.Gas.GasRemaining()
	return res
}
