package host

import (
	"context"
	"fmt"
	"math"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

// ApplyMessage executes tx as the top-level frame. Contract failures are
// reported in the receipt; the returned error is reserved for faults of
// the world state itself. On Failure or Revert every change made by the
// transaction is discarded except the sender nonce bump.
func (e *RuntimeEnvironment) ApplyMessage(ctx context.Context, tx types.Transaction) (*types.Receipt, error) {
	e.State.SetTxContext(e.Tx.Hash, e.Tx.Index, e.Block.Number)
	meter := gas.NewMeter(tx.GasLimit)

	res, created := e.applyMessage(ctx, tx, meter)

	receipt := &types.Receipt{
		Status:  res.Status,
		GasUsed: meter.GasConsumed(),
		Err:     res.Err,
	}
	if res.Status != types.StatusFailure {
		receipt.ReturnData = res.Output
	}
	if res.Status == types.StatusSuccess {
		receipt.Logs = append([]*types.Log(nil), e.State.Logs()...)
		receipt.ContractAddress = created
	}
	receipt.Destructed = e.State.Finalise()

	if err := e.State.Error(); err != nil {
		return nil, &types.RuntimeError{Msg: "world state", Err: err}
	}
	return receipt, nil
}

func rejected(err error) types.CallResult {
	return types.CallResult{Status: types.StatusFailure, Err: err}
}

func (e *RuntimeEnvironment) applyMessage(ctx context.Context, tx types.Transaction, meter *gas.Meter) (types.CallResult, *types.Address) {
	st := e.State
	f := &Frame{
		env:    e,
		Caller: tx.From,
		Value:  tx.Value,
		Gas:    meter,
	}

	if tx.To == nil {
		addr, err := e.newContractAddress(tx.From)
		if err != nil {
			return rejected(err), nil
		}
		if st.GetBalance(tx.From).Cmp(tx.Value) < 0 {
			return rejected(fmt.Errorf("sender %s: %w", tx.From, types.ErrInsufficientBalance)), nil
		}
		snapshot := st.Snapshot()
		if err := e.prepareContract(tx.From, addr, tx.Value); err != nil {
			st.RevertToSnapshot(snapshot)
			return rejected(err), nil
		}
		f.Kind = KindCreate
		f.Address = addr
		f.CodeAddress = addr
		f.Code = tx.Data
		res := e.deploy(ctx, f)
		if res.Status != types.StatusSuccess {
			st.RevertToSnapshot(snapshot)
			return res, nil
		}
		return res, &addr
	}

	nonce := st.GetNonce(tx.From)
	if nonce == math.MaxUint64 {
		return rejected(fmt.Errorf("sender %s: %w", tx.From, types.ErrNonceOverflow)), nil
	}
	st.SetNonce(tx.From, nonce+1)
	if st.GetBalance(tx.From).Cmp(tx.Value) < 0 {
		return rejected(fmt.Errorf("sender %s: %w", tx.From, types.ErrInsufficientBalance)), nil
	}

	snapshot := st.Snapshot()
	if err := st.Transfer(tx.From, *tx.To, tx.Value); err != nil {
		st.RevertToSnapshot(snapshot)
		return rejected(err), nil
	}
	f.Kind = KindCall
	f.Address = *tx.To
	f.CodeAddress = *tx.To
	f.Input = tx.Data
	f.Code = st.GetCode(*tx.To)
	res := e.run(ctx, f)
	if res.Status != types.StatusSuccess {
		st.RevertToSnapshot(snapshot)
	}
	return res, nil
}
