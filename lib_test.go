package eeivm

import (
	"context"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewasm/eeivm/internal/wasmtest"
	"github.com/ewasm/eeivm/types"
)

const testGasLimit = 1_000_000

var (
	alice = types.BytesToAddress([]byte{0xa1})
	bob   = types.BytesToAddress([]byte{0xb0})
)

func withVM(t *testing.T) (*VM, dbm.DB) {
	t.Helper()
	database := dbm.NewMemDB()
	vm, err := NewVM(types.DefaultVMConfig(), database, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(vm.Cleanup)

	require.NoError(t, vm.SetGenesis(types.GenesisAlloc{
		alice: {Balance: types.ValueFromUint64(1_000_000)},
	}))
	return vm, database
}

func testBlock() types.BlockContext {
	return types.BlockContext{
		Number:   1,
		GasLimit: 8_000_000,
		GetHash:  func(n uint64) types.Uint256 { return types.Uint256FromUint64(n) },
	}
}

// counter increments slot 0 by storing the value passed as call data.
func counter() []byte {
	m := wasmtest.New("ethereum")
	copyIn := m.Import("callDataCopy", []byte{wasmtest.I32, wasmtest.I32, wasmtest.I32}, nil)
	store := m.Import("storageStore", []byte{wasmtest.I32, wasmtest.I32}, nil)
	m.I32(32).I32(0).I32(32).Call(copyIn)
	m.I32(0).I32(32).Call(store)
	return m.Bytes()
}

// deployer is init code that returns counter as the deployed code.
func deployer() []byte {
	code := counter()
	m := wasmtest.New("ethereum").Data(0, code)
	finish := m.Import("finish", []byte{wasmtest.I32, wasmtest.I32}, nil)
	m.I32(0).I32(int32(len(code))).Call(finish)
	return m.Bytes()
}

func TestGenesis(t *testing.T) {
	vm, _ := withVM(t)

	require.NoError(t, vm.SetGenesis(types.GenesisAlloc{
		bob: {
			Balance: types.ValueFromUint64(5),
			Nonce:   3,
			Code:    []byte{0x00, 0x61, 0x73, 0x6d},
			Storage: map[types.Uint256]types.Uint256{
				types.Uint256FromUint64(1): types.Uint256FromUint64(9),
			},
		},
	}))

	balance, err := vm.Balance(bob)
	require.NoError(t, err)
	assert.Equal(t, types.ValueFromUint64(5), balance)
	nonce, err := vm.Nonce(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)
	code, err := vm.Code(bob)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d}, code)
	slot, err := vm.StorageAt(bob, types.Uint256FromUint64(1))
	require.NoError(t, err)
	assert.Equal(t, types.Uint256FromUint64(9), slot)
	keys, err := vm.StorageKeys(bob)
	require.NoError(t, err)
	assert.Equal(t, []types.Uint256{types.Uint256FromUint64(1)}, keys)

	code, err = vm.Code(alice)
	require.NoError(t, err)
	assert.Nil(t, code)
}

func TestDeployAndCall(t *testing.T) {
	vm, database := withVM(t)
	ctx := context.Background()

	receipt, err := vm.ApplyTransaction(ctx, testBlock(), types.Transaction{
		From:     alice,
		Value:    types.ValueFromUint64(10),
		Data:     deployer(),
		GasLimit: testGasLimit,
	})
	require.NoError(t, err)
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)
	require.NotNil(t, receipt.ContractAddress)
	contract := *receipt.ContractAddress
	assert.Equal(t, types.Address(crypto.CreateAddress(alice.Common(), 0)), contract)

	code, err := vm.Code(contract)
	require.NoError(t, err)
	assert.Equal(t, counter(), code)
	balance, err := vm.Balance(contract)
	require.NoError(t, err)
	assert.Equal(t, types.ValueFromUint64(10), balance)

	input := types.Uint256FromUint64(42)
	receipt, err = vm.ApplyTransaction(ctx, testBlock(), types.Transaction{
		From:     alice,
		To:       &contract,
		Data:     input.Bytes(),
		GasLimit: testGasLimit,
	})
	require.NoError(t, err)
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)

	slot, err := vm.StorageAt(contract, types.Uint256{})
	require.NoError(t, err)
	assert.Equal(t, input, slot)
	nonce, err := vm.Nonce(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nonce)

	// state survives a new VM on the same database
	reopened, err := NewVM(types.DefaultVMConfig(), database, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Cleanup()
	slot, err = reopened.StorageAt(contract, types.Uint256{})
	require.NoError(t, err)
	assert.Equal(t, input, slot)
}

func TestFailedTransactionKeepsNonceBump(t *testing.T) {
	vm, _ := withVM(t)

	m := wasmtest.New("ethereum").Op(wasmtest.OpUnreachable)
	require.NoError(t, vm.SetGenesis(types.GenesisAlloc{bob: {Code: m.Bytes()}}))

	receipt, err := vm.ApplyTransaction(context.Background(), testBlock(), types.Transaction{
		From:     alice,
		To:       &bob,
		Value:    types.ValueFromUint64(100),
		GasLimit: testGasLimit,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailure, receipt.Status)
	assert.Equal(t, uint64(testGasLimit), receipt.GasUsed)

	nonce, err := vm.Nonce(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
	balance, err := vm.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, types.ValueFromUint64(1_000_000), balance)
}

func TestNilDatabase(t *testing.T) {
	_, err := NewVM(types.DefaultVMConfig(), nil, zerolog.Nop())
	require.Error(t, err)
}
