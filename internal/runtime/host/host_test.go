package host

import (
	"context"
	"fmt"
	"math"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ewasm/eeivm/internal/runtime/db"
	"github.com/ewasm/eeivm/internal/runtime/memory"
	"github.com/ewasm/eeivm/internal/runtime/state"
	"github.com/ewasm/eeivm/types"
)

const (
	testMemorySize = 1024
	testGasLimit   = 1_000_000

	offAddr   = 0
	offValue  = 32
	offData   = 64
	offOut    = 256
	offResult = 512

	allGas int64 = math.MaxInt64
)

var (
	sender   = types.BytesToAddress([]byte{0x5e, 0x4d})
	coinbase = types.BytesToAddress([]byte{0xc0, 0x1b})
	addrA    = types.BytesToAddress([]byte{0xaa})
	addrB    = types.BytesToAddress([]byte{0xbb})
	addrC    = types.BytesToAddress([]byte{0xcc})
	txHash   = types.Uint256{0x77}
)

// program is contract code written in Go. It runs against the frame the
// same way compiled code would, through the EEI methods.
type program func(ctx context.Context, f *Frame) error

type goInterpreter struct {
	programs map[string]program
}

func (g *goInterpreter) Run(ctx context.Context, f *Frame) error {
	f.Attach(memory.NewBuffer(testMemorySize))
	prog, ok := g.programs[string(f.Code)]
	if !ok {
		return fmt.Errorf("no program for code %q", f.Code)
	}
	return prog(ctx, f)
}

type harness struct {
	t      *testing.T
	state  *state.StateDB
	interp *goInterpreter
	block  types.BlockContext
	limits types.ExecutionLimits
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		state:  state.New(db.New(dbm.NewMemDB())),
		interp: &goInterpreter{programs: make(map[string]program)},
		block: types.BlockContext{
			Number:     1000,
			Timestamp:  1_700_000_000,
			GasLimit:   8_000_000,
			Difficulty: types.Uint256FromUint64(131072),
			Coinbase:   coinbase,
			GetHash: func(n uint64) types.Uint256 {
				return types.Uint256FromUint64(n + 1)
			},
		},
		limits: types.DefaultVMConfig().Limits,
	}
	h.state.SetBalance(sender, types.ValueFromUint64(1_000_000))
	return h
}

// code registers prog under a unique code blob and returns it.
func (h *harness) code(name string, prog program) []byte {
	code := []byte("code:" + name)
	h.interp.programs[string(code)] = prog
	return code
}

func (h *harness) contract(addr types.Address, balance uint64, prog program) {
	h.state.SetCode(addr, h.code(addr.Hex(), prog))
	if balance > 0 {
		h.state.SetBalance(addr, types.ValueFromUint64(balance))
	}
}

func (h *harness) env(tx types.Transaction) *RuntimeEnvironment {
	return NewRuntimeEnvironment(h.state, h.block, tx.TxContext(), h.limits, h.interp, zerolog.Nop())
}

func (h *harness) tx(to *types.Address, value uint64, data []byte) types.Transaction {
	return types.Transaction{
		From:     sender,
		To:       to,
		Value:    types.ValueFromUint64(value),
		Data:     data,
		GasLimit: testGasLimit,
		GasPrice: types.ValueFromUint64(3),
		Hash:     txHash,
		Index:    2,
	}
}

func (h *harness) apply(to *types.Address, value uint64, data []byte) *types.Receipt {
	h.t.Helper()
	tx := h.tx(to, value, data)
	receipt, err := h.env(tx).ApplyMessage(context.Background(), tx)
	require.NoError(h.t, err)
	return receipt
}

// run executes prog as the top-level frame of a call to addrA.
func (h *harness) run(prog program) *types.Receipt {
	h.t.Helper()
	h.contract(addrA, 0, prog)
	return h.apply(&addrA, 0, nil)
}

func mustPut(f *Frame, offset uint32, data []byte) {
	if err := f.mem.Write(offset, data); err != nil {
		panic(err)
	}
}

func mustGet(f *Frame, offset, length uint32) []byte {
	b, err := f.mem.Read(offset, length)
	if err != nil {
		panic(err)
	}
	return b
}

func returnBytes(f *Frame, data []byte) error {
	mustPut(f, offOut, data)
	return f.Return(offOut, uint32(len(data)))
}

func revertBytes(f *Frame, data []byte) error {
	mustPut(f, offOut, data)
	return f.Revert(offOut, uint32(len(data)))
}

func storeWord(f *Frame, key, value uint64) error {
	mustPut(f, offResult, types.Uint256FromUint64(key).Bytes())
	mustPut(f, offResult+32, types.Uint256FromUint64(value).Bytes())
	return f.StorageStore(offResult, offResult+32)
}

func loadWord(f *Frame, key uint64) (types.Uint256, error) {
	mustPut(f, offResult, types.Uint256FromUint64(key).Bytes())
	if err := f.StorageLoad(offResult, offResult+32); err != nil {
		return types.Uint256{}, err
	}
	return types.BytesToUint256(mustGet(f, offResult+32, 32)), nil
}

func callWith(ctx context.Context, f *Frame, kind CallKind, target types.Address, value uint64, input []byte, gasLimit int64) (uint32, error) {
	mustPut(f, offAddr, target.Bytes())
	mustPut(f, offValue, types.ValueFromUint64(value).Bytes())
	mustPut(f, offData, input)
	n := uint32(len(input))
	switch kind {
	case KindCall:
		return f.Call(ctx, gasLimit, offAddr, offValue, offData, n)
	case KindCallCode:
		return f.CallCode(ctx, gasLimit, offAddr, offValue, offData, n)
	case KindCallDelegate:
		return f.CallDelegate(ctx, gasLimit, offAddr, offData, n)
	case KindCallStatic:
		return f.CallStatic(ctx, gasLimit, offAddr, offData, n)
	}
	panic("unsupported call kind " + kind.String())
}

// returnData copies the whole return-data buffer out of the frame.
func returnData(f *Frame) ([]byte, error) {
	size, err := f.GetReturnDataSize()
	if err != nil {
		return nil, err
	}
	if err := f.ReturnDataCopy(offOut, 0, size); err != nil {
		return nil, err
	}
	return mustGet(f, offOut, size), nil
}
