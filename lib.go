// Package eeivm executes ewasm contracts against a persistent world state.
package eeivm

import (
	"context"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/rs/zerolog"

	"github.com/ewasm/eeivm/internal/runtime/db"
	"github.com/ewasm/eeivm/internal/runtime/host"
	"github.com/ewasm/eeivm/internal/runtime/state"
	"github.com/ewasm/eeivm/internal/wazeroimpl"
	"github.com/ewasm/eeivm/types"
)

// VM is the main entry point to this library.
// Create one per database and apply transactions to it in block order.
type VM struct {
	config  types.VMConfig
	store   *db.Store
	runtime *wazeroimpl.Runtime
	logger  zerolog.Logger

	mu sync.Mutex
}

// NewVM creates a VM that keeps accounts, code and storage in database.
// The VM does not take ownership of database; the caller closes it after Cleanup.
func NewVM(config types.VMConfig, database dbm.DB, logger zerolog.Logger) (*VM, error) {
	if database == nil {
		return nil, fmt.Errorf("nil database")
	}
	rt, err := wazeroimpl.New(context.Background(), config, logger)
	if err != nil {
		return nil, err
	}
	return &VM{
		config:  config,
		store:   db.New(database),
		runtime: rt,
		logger:  logger.With().Str("module", "vm").Logger(),
	}, nil
}

// Cleanup releases the wasm runtime and every compiled module.
func (vm *VM) Cleanup() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.runtime.Close(context.Background()); err != nil {
		vm.logger.Error().Err(err).Msg("close wazero runtime")
	}
}

// ApplyTransaction runs tx in block and commits the resulting state.
//
// Contract failures and reverts are reported in the receipt and still
// commit the sender nonce bump. The returned error is reserved for faults
// of the host itself, such as a failing database, in which case nothing
// is committed.
func (vm *VM) ApplyTransaction(ctx context.Context, block types.BlockContext, tx types.Transaction) (*types.Receipt, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	st := state.New(vm.store)
	env := host.NewRuntimeEnvironment(st, block, tx.TxContext(), vm.config.Limits, vm.runtime, vm.logger)
	receipt, err := env.ApplyMessage(ctx, tx)
	if err != nil {
		st.Discard()
		vm.logger.Error().Err(err).Str("tx", tx.Hash.Hex()).Msg("transaction aborted")
		return nil, err
	}
	if err := st.Commit(); err != nil {
		vm.logger.Error().Err(err).Str("tx", tx.Hash.Hex()).Msg("commit failed")
		return nil, &types.RuntimeError{Msg: "commit", Err: err}
	}

	ev := vm.logger.Info().
		Str("tx", tx.Hash.Hex()).
		Str("from", tx.From.Hex()).
		Str("status", receipt.Status.String()).
		Uint64("gas_used", receipt.GasUsed).
		Int("logs", len(receipt.Logs))
	if receipt.ContractAddress != nil {
		ev = ev.Str("contract", receipt.ContractAddress.Hex())
	}
	ev.Err(receipt.Err).Msg("transaction applied")
	return receipt, nil
}

// SetGenesis writes alloc directly to the database.
func (vm *VM) SetGenesis(alloc types.GenesisAlloc) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	st := state.New(vm.store)
	for addr, acc := range alloc {
		st.SetBalance(addr, acc.Balance)
		st.SetNonce(addr, acc.Nonce)
		if len(acc.Code) > 0 {
			st.SetCode(addr, acc.Code)
		}
		for k, v := range acc.Storage {
			st.SetState(addr, k, v)
		}
	}
	st.Finalise()
	if err := st.Commit(); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	vm.logger.Info().Int("accounts", len(alloc)).Msg("genesis written")
	return nil
}

// Balance returns the committed balance of addr.
func (vm *VM) Balance(addr types.Address) (types.Value, error) {
	acc, _, err := vm.store.Account(addr)
	return acc.Balance, err
}

// Nonce returns the committed nonce of addr.
func (vm *VM) Nonce(addr types.Address) (uint64, error) {
	acc, _, err := vm.store.Account(addr)
	return acc.Nonce, err
}

// Code returns the committed code of addr, nil if it has none.
func (vm *VM) Code(addr types.Address) ([]byte, error) {
	acc, exists, err := vm.store.Account(addr)
	if err != nil || !exists || acc.CodeHash == db.EmptyCodeHash {
		return nil, err
	}
	return vm.store.Code(acc.CodeHash)
}

// StorageAt returns the committed value of slot key of addr.
func (vm *VM) StorageAt(addr types.Address, key types.Uint256) (types.Uint256, error) {
	return vm.store.Slot(addr, key)
}

// StorageKeys lists the non-zero slots of addr.
func (vm *VM) StorageKeys(addr types.Address) ([]types.Uint256, error) {
	return vm.store.SlotKeys(addr)
}
