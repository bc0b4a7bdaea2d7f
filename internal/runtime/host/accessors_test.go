package host

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

func TestContextAccessors(t *testing.T) {
	h := newHarness(t)
	var (
		address, caller, origin, cb types.Address
		value, gasPrice             types.Value
		difficulty                  types.Uint256
		number, timestamp, limit    int64
		dataSize, codeSize          uint32
	)
	h.contract(addrA, 0, func(ctx context.Context, f *Frame) error {
		require.NoError(t, f.GetAddress(0))
		address = types.BytesToAddress(mustGet(f, 0, 20))
		require.NoError(t, f.GetCaller(0))
		caller = types.BytesToAddress(mustGet(f, 0, 20))
		require.NoError(t, f.GetTxOrigin(0))
		origin = types.BytesToAddress(mustGet(f, 0, 20))
		require.NoError(t, f.GetBlockCoinbase(0))
		cb = types.BytesToAddress(mustGet(f, 0, 20))
		require.NoError(t, f.GetCallValue(0))
		value = types.BytesToValue(mustGet(f, 0, 16))
		require.NoError(t, f.GetTxGasPrice(0))
		gasPrice = types.BytesToValue(mustGet(f, 0, 16))
		require.NoError(t, f.GetBlockDifficulty(0))
		difficulty = types.BytesToUint256(mustGet(f, 0, 32))

		var err error
		number, err = f.GetBlockNumber()
		require.NoError(t, err)
		timestamp, err = f.GetBlockTimestamp()
		require.NoError(t, err)
		limit, err = f.GetBlockGasLimit()
		require.NoError(t, err)
		dataSize, err = f.GetCallDataSize()
		require.NoError(t, err)
		codeSize, err = f.GetCodeSize()
		require.NoError(t, err)
		return nil
	})

	receipt := h.apply(&addrA, 42, []byte("input"))
	require.True(t, receipt.Succeeded(), receipt.Err)

	assert.Equal(t, addrA, address)
	assert.Equal(t, sender, caller)
	assert.Equal(t, sender, origin)
	assert.Equal(t, coinbase, cb)
	assert.Equal(t, types.ValueFromUint64(42), value)
	assert.Equal(t, types.ValueFromUint64(3), gasPrice)
	assert.Equal(t, types.Uint256FromUint64(131072), difficulty)
	assert.Equal(t, int64(1000), number)
	assert.Equal(t, int64(1_700_000_000), timestamp)
	assert.Equal(t, int64(8_000_000), limit)
	assert.Equal(t, uint32(5), dataSize)
	assert.Equal(t, uint32(len(h.state.GetCode(addrA))), codeSize)
}

func TestGetBlockHashWindow(t *testing.T) {
	cases := []struct {
		number int64
		want   types.Uint256
	}{
		{999, types.Uint256FromUint64(1000)},
		{744, types.Uint256FromUint64(745)},
		{743, types.Uint256{}},
		{1000, types.Uint256{}},
		{1001, types.Uint256{}},
		{-1, types.Uint256{}},
		{math.MinInt64, types.Uint256{}},
	}
	for _, tc := range cases {
		h := newHarness(t)
		var got types.Uint256
		receipt := h.run(func(ctx context.Context, f *Frame) error {
			mustPut(f, 0, types.Uint256{}.Not().Bytes())
			if err := f.GetBlockHash(tc.number, 0); err != nil {
				return err
			}
			got = types.BytesToUint256(mustGet(f, 0, 32))
			return nil
		})
		require.True(t, receipt.Succeeded())
		assert.Equal(t, tc.want, got, "block %d", tc.number)
	}
}

func TestGetBalanceOfMissingAccount(t *testing.T) {
	h := newHarness(t)
	var balance, own types.Value
	h.contract(addrA, 77, func(ctx context.Context, f *Frame) error {
		mustPut(f, 0, addrC.Bytes())
		mustPut(f, 32, types.Value{}.Not().Bytes())
		if err := f.GetBalance(0, 32); err != nil {
			return err
		}
		balance = types.BytesToValue(mustGet(f, 32, 16))
		require.NoError(t, f.GetAddress(0))
		require.NoError(t, f.GetBalance(0, 32))
		own = types.BytesToValue(mustGet(f, 32, 16))
		return nil
	})
	receipt := h.apply(&addrA, 0, nil)
	require.True(t, receipt.Succeeded())
	assert.True(t, balance.IsZero())
	assert.Equal(t, types.ValueFromUint64(77), own)
}

func TestCopyZeroFillsPastSource(t *testing.T) {
	h := newHarness(t)
	var copied, external []byte
	var extSize uint32
	h.contract(addrB, 0, func(ctx context.Context, f *Frame) error { return nil })
	h.contract(addrA, 0, func(ctx context.Context, f *Frame) error {
		mustPut(f, 100, []byte{0xff, 0xff, 0xff, 0xff})
		if err := f.CallDataCopy(100, 1, 4); err != nil {
			return err
		}
		copied = mustGet(f, 100, 4)

		mustPut(f, 0, addrB.Bytes())
		var err error
		if extSize, err = f.GetExternalCodeSize(0); err != nil {
			return err
		}
		if err := f.ExternalCodeCopy(0, 200, extSize-2, 4); err != nil {
			return err
		}
		external = mustGet(f, 200, 4)
		return f.CodeCopy(300, math.MaxUint32, 8)
	})
	receipt := h.apply(&addrA, 0, []byte("abc"))
	require.True(t, receipt.Succeeded(), receipt.Err)

	assert.Equal(t, []byte{'b', 'c', 0, 0}, copied)
	codeB := h.state.GetCode(addrB)
	assert.Equal(t, uint32(len(codeB)), extSize)
	want := append(append([]byte{}, codeB[len(codeB)-2:]...), 0, 0)
	assert.Equal(t, want, external)
}

func TestMemoryBoundsAreEnforced(t *testing.T) {
	end := uint32(testMemorySize)
	cases := map[string]func(ctx context.Context, f *Frame) error{
		"getAddress":       func(_ context.Context, f *Frame) error { return f.GetAddress(end - 10) },
		"getCaller":        func(_ context.Context, f *Frame) error { return f.GetCaller(end) },
		"getCallValue":     func(_ context.Context, f *Frame) error { return f.GetCallValue(end - 15) },
		"getBalance dest":  func(_ context.Context, f *Frame) error { return f.GetBalance(0, end-8) },
		"getBalance addr":  func(_ context.Context, f *Frame) error { return f.GetBalance(math.MaxUint32, 0) },
		"getBlockHash":     func(_ context.Context, f *Frame) error { return f.GetBlockHash(999, end-31) },
		"getTxOrigin":      func(_ context.Context, f *Frame) error { return f.GetTxOrigin(end - 1) },
		"callDataCopy":     func(_ context.Context, f *Frame) error { return f.CallDataCopy(end-2, 0, 3) },
		"returnDataCopy":   func(_ context.Context, f *Frame) error { return f.ReturnDataCopy(math.MaxUint32, 0, 2) },
		"codeCopy":         func(_ context.Context, f *Frame) error { return f.CodeCopy(1, 0, end) },
		"storageStore":     func(_ context.Context, f *Frame) error { return f.StorageStore(0, end-16) },
		"storageLoad":      func(_ context.Context, f *Frame) error { return f.StorageLoad(0, end-16) },
		"log data":         func(_ context.Context, f *Frame) error { return f.Log(end-4, 8, 0) },
		"log topic":        func(_ context.Context, f *Frame) error { return f.Log(0, 0, 1, end-1, 0, 0, 0) },
		"return":           func(_ context.Context, f *Frame) error { return f.Return(end, 1) },
		"revert":           func(_ context.Context, f *Frame) error { return f.Revert(math.MaxUint32, math.MaxUint32) },
		"selfDestruct":     func(_ context.Context, f *Frame) error { return f.SelfDestruct(end - 19) },
		"call data":        func(ctx context.Context, f *Frame) (err error) { _, err = f.Call(ctx, 0, 0, 32, end-1, 2); return },
		"callStatic addr":  func(ctx context.Context, f *Frame) (err error) { _, err = f.CallStatic(ctx, 0, end-4, 0, 0); return },
		"create result":    func(ctx context.Context, f *Frame) (err error) { _, err = f.Create(ctx, 32, 0, 0, end-19); return },
		"externalCodeCopy": func(_ context.Context, f *Frame) error { return f.ExternalCodeCopy(0, end-1, 0, 2) },
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			var opErr error
			var tail []byte
			receipt := h.run(func(ctx context.Context, f *Frame) error {
				mustPut(f, end-32, make([]byte, 32))
				opErr = op(ctx, f)
				tail = mustGet(f, end-32, 32)
				return opErr
			})
			require.ErrorIs(t, opErr, types.ErrOutOfBoundsMemory)
			assert.Equal(t, make([]byte, 32), tail, "no partial write")
			assert.Equal(t, types.StatusFailure, receipt.Status)
			assert.Equal(t, uint64(testGasLimit), receipt.GasUsed)
		})
	}
}

func TestOutOfGasFailsFrameAndForfeitsGas(t *testing.T) {
	h := newHarness(t)
	var useErr, afterErr error
	receipt := h.run(func(ctx context.Context, f *Frame) error {
		if err := storeWord(f, 1, 1); err != nil {
			return err
		}
		useErr = f.UseGas(testGasLimit)
		_, afterErr = f.GetGasLeft()
		return useErr
	})
	require.ErrorIs(t, useErr, types.ErrOutOfGas)
	require.ErrorIs(t, afterErr, ErrHalt)
	assert.Equal(t, types.StatusFailure, receipt.Status)
	assert.Equal(t, uint64(testGasLimit), receipt.GasUsed)
	assert.True(t, h.state.GetState(addrA, types.Uint256FromUint64(1)).IsZero())
}

func TestUseGasIgnoresNonPositiveAmounts(t *testing.T) {
	h := newHarness(t)
	var before, after int64
	receipt := h.run(func(ctx context.Context, f *Frame) error {
		var err error
		before, err = f.GetGasLeft()
		require.NoError(t, err)
		require.NoError(t, f.UseGas(0))
		require.NoError(t, f.UseGas(-500))
		require.NoError(t, f.UseGas(10))
		after, err = f.GetGasLeft()
		return err
	})
	require.True(t, receipt.Succeeded())
	assert.Equal(t, before-10-int64(gas.CostBase), after)
}
