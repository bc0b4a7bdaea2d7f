package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewasm/eeivm/types"
)

func TestHaltedFrameRejectsFurtherCalls(t *testing.T) {
	h := newHarness(t)
	var afterReturn error
	receipt := h.run(func(ctx context.Context, f *Frame) error {
		err := returnBytes(f, []byte("done"))
		require.ErrorIs(t, err, ErrHalt)
		assert.True(t, f.Halted())
		afterReturn = storeWord(f, 1, 1)
		return err
	})
	require.True(t, receipt.Succeeded(), receipt.Err)
	assert.ErrorIs(t, afterReturn, ErrHalt)
	assert.Equal(t, []byte("done"), receipt.ReturnData)
	assert.True(t, h.state.GetState(addrA, word(1)).IsZero())
}

func TestFallingOffMainSucceedsWithEmptyOutput(t *testing.T) {
	h := newHarness(t)
	receipt := h.run(func(ctx context.Context, f *Frame) error { return nil })
	require.True(t, receipt.Succeeded())
	assert.Empty(t, receipt.ReturnData)
}

func TestLogs(t *testing.T) {
	h := newHarness(t)
	var tooMany error
	receipt := h.run(func(ctx context.Context, f *Frame) error {
		mustPut(f, offData, []byte("payload"))
		mustPut(f, 100, word(1).Bytes())
		mustPut(f, 140, word(2).Bytes())
		if err := f.Log(offData, 7, 2, 100, 140, 0, 0); err != nil {
			return err
		}
		if err := f.Log(offData, 0, 0, 0, 0, 0, 0); err != nil {
			return err
		}
		return nil
	})
	require.True(t, receipt.Succeeded(), receipt.Err)
	require.Len(t, receipt.Logs, 2)

	first := receipt.Logs[0]
	assert.Equal(t, addrA, first.Address)
	assert.Equal(t, []types.Uint256{word(1), word(2)}, first.Topics)
	assert.Equal(t, []byte("payload"), first.Data)
	assert.Equal(t, uint64(1000), first.BlockNumber)
	assert.Equal(t, txHash, first.TxHash)
	assert.Equal(t, uint32(2), first.TxIndex)
	assert.Equal(t, uint32(1), receipt.Logs[1].Index)

	h = newHarness(t)
	receipt = h.run(func(ctx context.Context, f *Frame) error {
		tooMany = f.Log(0, 0, 5, 0, 0, 0, 0)
		return tooMany
	})
	assert.ErrorIs(t, tooMany, types.ErrInvalidTopicCount)
	assert.Equal(t, types.StatusFailure, receipt.Status)
}

func TestSelfDestruct(t *testing.T) {
	h := newHarness(t)
	h.contract(addrB, 30, func(ctx context.Context, f *Frame) error {
		mustPut(f, 0, addrC.Bytes())
		return f.SelfDestruct(0)
	})
	receipt := h.apply(&addrB, 0, nil)
	require.True(t, receipt.Succeeded(), receipt.Err)
	require.Equal(t, []types.PendingSelfDestruct{{Account: addrB, Beneficiary: addrC}}, receipt.Destructed)
	assert.Equal(t, types.ValueFromUint64(30), h.state.GetBalance(addrC))
	assert.True(t, h.state.GetBalance(addrB).IsZero())
	assert.Nil(t, h.state.GetCode(addrB))
}

func TestSelfDestructUndoneByAncestorRevert(t *testing.T) {
	h := newHarness(t)
	h.contract(addrB, 30, func(ctx context.Context, f *Frame) error {
		mustPut(f, 0, addrC.Bytes())
		return f.SelfDestruct(0)
	})
	var inner uint32
	// A lets B destruct itself, then reverts
	h.contract(addrA, 0, func(ctx context.Context, f *Frame) error {
		var err error
		if inner, err = callWith(ctx, f, KindCall, addrB, 0, nil, allGas); err != nil {
			return err
		}
		return f.Revert(0, 0)
	})
	codeB := h.state.GetCode(addrB)
	var outer uint32
	h.contract(addrC, 0, func(ctx context.Context, f *Frame) error {
		var err error
		outer, err = callWith(ctx, f, KindCall, addrA, 0, nil, allGas)
		return err
	})

	receipt := h.apply(&addrC, 0, nil)
	require.True(t, receipt.Succeeded(), receipt.Err)
	assert.Equal(t, uint32(0), inner)
	assert.Equal(t, uint32(2), outer)
	assert.Empty(t, receipt.Destructed)
	assert.Equal(t, types.ValueFromUint64(30), h.state.GetBalance(addrB))
	assert.Equal(t, codeB, h.state.GetCode(addrB))
	assert.True(t, h.state.GetBalance(addrC).IsZero())
}

func TestSelfDestructToItselfBurnsBalance(t *testing.T) {
	h := newHarness(t)
	h.contract(addrB, 30, func(ctx context.Context, f *Frame) error {
		if err := f.GetAddress(0); err != nil {
			return err
		}
		return f.SelfDestruct(0)
	})
	receipt := h.apply(&addrB, 0, nil)
	require.True(t, receipt.Succeeded(), receipt.Err)
	assert.True(t, h.state.GetBalance(addrB).IsZero())
	require.Len(t, receipt.Destructed, 1)
}
