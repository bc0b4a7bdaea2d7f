// Package state implements the journaled world state that EEI calls read and
// mutate. Changes stay in memory until Commit writes them to the store.
package state

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ewasm/eeivm/internal/runtime/db"
	"github.com/ewasm/eeivm/types"
)

type revision struct {
	id           int
	journalIndex int
}

// StateDB is the world state seen by one transaction at a time. It is not
// safe for concurrent use.
type StateDB struct {
	store   *db.Store
	objects map[types.Address]*stateObject

	// first error from the store; later reads return zero values
	dbErr error

	journal        *journal
	validRevisions []revision
	nextRevisionID int

	logs    []*types.Log
	txHash  types.Uint256
	txIndex uint32
	block   uint64

	destructed       mapset.Set[types.Address]
	pendingDestructs []types.PendingSelfDestruct
	dirty            mapset.Set[types.Address]
}

// New creates a state overlay on top of store.
func New(store *db.Store) *StateDB {
	return &StateDB{
		store:      store,
		objects:    make(map[types.Address]*stateObject),
		journal:    newJournal(),
		destructed: mapset.NewThreadUnsafeSet[types.Address](),
		dirty:      mapset.NewThreadUnsafeSet[types.Address](),
	}
}

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first store error seen since the last Commit or Discard.
func (s *StateDB) Error() error {
	return s.dbErr
}

// SetTxContext sets the metadata attached to logs emitted from now on.
func (s *StateDB) SetTxContext(txHash types.Uint256, txIndex uint32, block uint64) {
	s.txHash = txHash
	s.txIndex = txIndex
	s.block = block
}

// getStateObject returns the live object at addr, or nil if the account does not exist.
func (s *StateDB) getStateObject(addr types.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		if obj.deleted {
			return nil
		}
		return obj
	}
	data, exists, err := s.store.Account(addr)
	if err != nil {
		s.setError(err)
		return nil
	}
	if !exists {
		return nil
	}
	obj := newObject(addr, data)
	s.objects[addr] = obj
	return obj
}

func (s *StateDB) getOrNewStateObject(addr types.Address) *stateObject {
	obj := s.getStateObject(addr)
	if obj == nil {
		obj = s.createObject(addr)
	}
	return obj
}

// createObject replaces whatever is at addr with a fresh account. The balance
// of a previous account carries over.
func (s *StateDB) createObject(addr types.Address) *stateObject {
	prev := s.getStateObject(addr)
	obj := newObject(addr, emptyAccount)
	if prev != nil {
		obj.data.Balance = prev.data.Balance
	}
	s.journal.append(createObjectChange{account: &addr, prev: s.objects[addr]})
	s.objects[addr] = obj
	return obj
}

// Exist reports whether an account is stored at addr.
func (s *StateDB) Exist(addr types.Address) bool {
	return s.getStateObject(addr) != nil
}

// CreateAccount starts a new contract account at addr. Its storage starts empty.
func (s *StateDB) CreateAccount(addr types.Address) {
	obj := s.createObject(addr)
	obj.created = true
}

// GetBalance returns the balance at addr, zero for missing accounts.
func (s *StateDB) GetBalance(addr types.Address) types.Value {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.Balance
	}
	return types.Value{}
}

func (s *StateDB) SetBalance(addr types.Address, amount types.Value) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{account: &addr, prev: obj.data.Balance})
	obj.setBalance(amount)
}

// AddBalance credits addr. The balance is left unchanged on overflow.
func (s *StateDB) AddBalance(addr types.Address, amount types.Value) error {
	sum, overflow := s.GetBalance(addr).Add(amount)
	if overflow {
		return fmt.Errorf("credit %s to %s: %w", amount, addr, types.ErrBalanceOverflow)
	}
	s.SetBalance(addr, sum)
	return nil
}

// SubBalance debits addr. The balance is left unchanged if it is too low.
func (s *StateDB) SubBalance(addr types.Address, amount types.Value) error {
	diff, underflow := s.GetBalance(addr).Sub(amount)
	if underflow {
		return fmt.Errorf("debit %s from %s: %w", amount, addr, types.ErrInsufficientBalance)
	}
	s.SetBalance(addr, diff)
	return nil
}

// Transfer moves amount from one account to another. Either both sides
// change or neither does.
func (s *StateDB) Transfer(from, to types.Address, amount types.Value) error {
	if amount.IsZero() {
		return nil
	}
	if s.GetBalance(from).Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s from %s: %w", amount, from, types.ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	if _, overflow := s.GetBalance(to).Add(amount); overflow {
		return fmt.Errorf("transfer %s to %s: %w", amount, to, types.ErrBalanceOverflow)
	}
	if err := s.SubBalance(from, amount); err != nil {
		return err
	}
	return s.AddBalance(to, amount)
}

func (s *StateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.Nonce
	}
	return 0
}

func (s *StateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(nonceChange{account: &addr, prev: obj.data.Nonce})
	obj.setNonce(nonce)
}

// GetCode returns the code at addr, or nil.
func (s *StateDB) GetCode(addr types.Address) []byte {
	obj := s.getStateObject(addr)
	if obj == nil {
		return nil
	}
	if !obj.codeLoaded {
		code, err := s.store.Code(obj.data.CodeHash)
		if err != nil {
			s.setError(err)
			return nil
		}
		obj.code = code
		obj.codeLoaded = true
	}
	return obj.code
}

func (s *StateDB) GetCodeSize(addr types.Address) int {
	return len(s.GetCode(addr))
}

// GetCodeHash returns the keccak256 of the code at addr, or zero if no account exists.
func (s *StateDB) GetCodeHash(addr types.Address) types.Uint256 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.CodeHash
	}
	return types.Uint256{}
}

func (s *StateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(codeChange{
		account:  &addr,
		prevCode: s.GetCode(addr),
		prevHash: obj.data.CodeHash,
	})
	obj.setCode(types.CodeHash(code), code)
}

// HasCodeOrNonce reports whether creating an account at addr would collide
// with an existing contract.
func (s *StateDB) HasCodeOrNonce(addr types.Address) bool {
	obj := s.getStateObject(addr)
	return obj != nil && (obj.data.Nonce != 0 || obj.hasCode())
}

// GetState reads a storage slot. Unset slots and missing accounts read as zero.
func (s *StateDB) GetState(addr types.Address, key types.Uint256) types.Uint256 {
	obj := s.getStateObject(addr)
	if obj == nil {
		return types.Uint256{}
	}
	if v, ok := obj.storage[key]; ok {
		return v
	}
	var v types.Uint256
	if !obj.created {
		var err error
		if v, err = s.store.Slot(addr, key); err != nil {
			s.setError(err)
			return types.Uint256{}
		}
	}
	obj.originStorage[key] = v
	obj.storage[key] = v
	return v
}

func (s *StateDB) SetState(addr types.Address, key, value types.Uint256) {
	prev := s.GetState(addr, key)
	obj := s.getOrNewStateObject(addr)
	s.journal.append(storageChange{account: &addr, key: key, prevalue: prev})
	obj.setState(key, value)
}

// AddLog appends a log tagged with the current transaction context.
func (s *StateDB) AddLog(addr types.Address, topics []types.Uint256, data []byte) {
	s.journal.append(addLogChange{})
	s.logs = append(s.logs, &types.Log{
		Address:     addr,
		Topics:      append([]types.Uint256(nil), topics...),
		Data:        append([]byte(nil), data...),
		BlockNumber: s.block,
		TxHash:      s.txHash,
		TxIndex:     s.txIndex,
		Index:       uint32(len(s.logs)),
	})
}

// Logs returns the logs emitted since the last Finalise or Discard.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// SelfDestruct moves the balance of addr to beneficiary and marks addr for
// deletion at Finalise. The balance is burned if beneficiary is addr itself.
func (s *StateDB) SelfDestruct(addr, beneficiary types.Address) error {
	balance := s.GetBalance(addr)
	if beneficiary != addr && !balance.IsZero() {
		if err := s.AddBalance(beneficiary, balance); err != nil {
			return err
		}
	}
	if s.Exist(addr) {
		s.SetBalance(addr, types.Value{})
	}
	if s.destructed.Contains(addr) {
		return nil
	}
	s.journal.append(selfDestructChange{account: &addr})
	s.destructed.Add(addr)
	s.pendingDestructs = append(s.pendingDestructs, types.PendingSelfDestruct{Account: addr, Beneficiary: beneficiary})
	return nil
}

func (s *StateDB) HasSelfDestructed(addr types.Address) bool {
	return s.destructed.Contains(addr)
}

// PendingSelfDestructs lists the accounts that Finalise will delete, in the
// order they self-destructed.
func (s *StateDB) PendingSelfDestructs() []types.PendingSelfDestruct {
	return s.pendingDestructs
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionID
	s.nextRevisionID++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot undoes every change made since the given snapshot was taken.
func (s *StateDB) RevertToSnapshot(revid int) {
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// Finalise closes the current transaction: pending self-destructs are applied
// and the journal is cleared, so earlier snapshots become invalid. It returns
// the self-destructs that were applied.
func (s *StateDB) Finalise() []types.PendingSelfDestruct {
	for addr := range s.journal.dirties {
		s.dirty.Add(addr)
	}
	applied := s.pendingDestructs
	for _, d := range applied {
		obj, ok := s.objects[d.Account]
		if !ok {
			continue
		}
		obj.deleted = true
		s.dirty.Add(d.Account)
	}
	s.pendingDestructs = nil
	s.destructed.Clear()
	s.logs = nil
	s.journal.reset()
	s.validRevisions = s.validRevisions[:0]
	return applied
}

// Commit finalises the state and writes every dirty account to the store in
// one batch. The overlay is dropped afterwards.
func (s *StateDB) Commit() error {
	s.Finalise()
	if s.dbErr != nil {
		return fmt.Errorf("commit aborted: %w", s.dbErr)
	}
	batch := s.store.NewBatch()
	for _, addr := range s.dirty.ToSlice() {
		obj, ok := s.objects[addr]
		if !ok {
			continue
		}
		if err := s.writeObject(batch, obj); err != nil {
			batch.Close()
			return fmt.Errorf("commit %s: %w", addr, err)
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.Discard()
	return nil
}

func (s *StateDB) writeObject(batch *db.Batch, obj *stateObject) error {
	if obj.deleted || obj.created {
		keys, err := s.store.SlotKeys(obj.address)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := batch.PutSlot(obj.address, key, types.Uint256{}); err != nil {
				return err
			}
		}
	}
	if obj.deleted {
		return batch.DeleteAccount(obj.address)
	}
	if err := batch.PutAccount(obj.address, obj.data); err != nil {
		return err
	}
	if obj.dirtyCode {
		if err := batch.PutCode(obj.data.CodeHash, obj.code); err != nil {
			return err
		}
	}
	for key, value := range obj.storage {
		if !obj.created && obj.originStorage[key] == value {
			continue
		}
		if err := batch.PutSlot(obj.address, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops all uncommitted changes.
func (s *StateDB) Discard() {
	s.objects = make(map[types.Address]*stateObject)
	s.dbErr = nil
	s.logs = nil
	s.pendingDestructs = nil
	s.destructed.Clear()
	s.dirty.Clear()
	s.journal.reset()
	s.validRevisions = s.validRevisions[:0]
}
