package host

import (
	"math"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// UseGas charges amount. Non-positive amounts are ignored.
func (f *Frame) UseGas(amount int64) error {
	if amount <= 0 {
		return f.begin(0)
	}
	return f.begin(uint64(amount))
}

func (f *Frame) GetGasLeft() (int64, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return clampInt64(f.Gas.GasRemaining()), nil
}

func (f *Frame) GetAddress(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.Address.Bytes()))
}

// GetBalance writes the balance of the account at addressOffset. Missing
// accounts have a zero balance.
func (f *Frame) GetBalance(addressOffset, resultOffset uint32) error {
	if err := f.begin(gas.CostBalance); err != nil {
		return err
	}
	addr, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return f.fail(err)
	}
	if err := f.mem.Check(resultOffset, types.ValueLength); err != nil {
		return f.fail(err)
	}
	balance := f.env.State.GetBalance(addr)
	return f.check(f.mem.Write(resultOffset, balance.Bytes()))
}

func (f *Frame) GetCaller(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.Caller.Bytes()))
}

func (f *Frame) GetCallValue(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.Value.Bytes()))
}

func (f *Frame) GetCallDataSize() (uint32, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return uint32(len(f.Input)), nil
}

func (f *Frame) GetReturnDataSize() (uint32, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return uint32(len(f.ReturnData)), nil
}

func (f *Frame) GetCodeSize() (uint32, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return uint32(len(f.Code)), nil
}

func (f *Frame) GetExternalCodeSize(addressOffset uint32) (uint32, error) {
	if err := f.begin(gas.CostExtCode); err != nil {
		return 0, err
	}
	addr, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return 0, f.fail(err)
	}
	return uint32(f.env.State.GetCodeSize(addr)), nil
}

func (f *Frame) GetTxOrigin(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.env.Tx.Origin.Bytes()))
}

func (f *Frame) GetTxGasPrice(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.env.Tx.GasPrice.Bytes()))
}

// GetBlockHash writes the hash of block number. Blocks outside the window
// of the last BlockHashWindow ancestors, including the current and future
// blocks, yield 32 zero bytes.
func (f *Frame) GetBlockHash(number int64, resultOffset uint32) error {
	if err := f.begin(gas.CostBlockHash); err != nil {
		return err
	}
	if err := f.mem.Check(resultOffset, types.Uint256Length); err != nil {
		return f.fail(err)
	}
	var hash types.Uint256
	current := f.env.Block.Number
	if number >= 0 && uint64(number) < current && current-uint64(number) <= types.BlockHashWindow && f.env.Block.GetHash != nil {
		hash = f.env.Block.GetHash(uint64(number))
	}
	return f.check(f.mem.Write(resultOffset, hash.Bytes()))
}

func (f *Frame) GetBlockCoinbase(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.env.Block.Coinbase.Bytes()))
}

func (f *Frame) GetBlockDifficulty(resultOffset uint32) error {
	if err := f.begin(gas.CostBase); err != nil {
		return err
	}
	return f.check(f.mem.Write(resultOffset, f.env.Block.Difficulty.Bytes()))
}

func (f *Frame) GetBlockNumber() (int64, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return clampInt64(f.env.Block.Number), nil
}

func (f *Frame) GetBlockTimestamp() (int64, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return clampInt64(f.env.Block.Timestamp), nil
}

func (f *Frame) GetBlockGasLimit() (int64, error) {
	if err := f.begin(gas.CostBase); err != nil {
		return 0, err
	}
	return clampInt64(f.env.Block.GasLimit), nil
}
