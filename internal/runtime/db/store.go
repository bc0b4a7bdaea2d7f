// Package db lays out accounts, code and storage slots in the key-value storage engine.
package db

import (
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/ewasm/eeivm/types"
)

var (
	accountPrefix = []byte("a")
	codePrefix    = []byte("c")
	slotPrefix    = []byte("s")
)

const accountRecordSize = types.ValueLength + 8 + types.Uint256Length

// EmptyCodeHash is the keccak256 hash of empty code.
var EmptyCodeHash = types.EmptyCodeHash

// Account is the persisted form of an account.
type Account struct {
	Balance  types.Value
	Nonce    uint64
	CodeHash types.Uint256
}

// Store reads and writes chain state in a cometbft-db database.
type Store struct {
	db dbm.DB
}

// New creates a new store instance
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

func accountKey(addr types.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

func codeKey(hash types.Uint256) []byte {
	return append(append([]byte{}, codePrefix...), hash[:]...)
}

func slotKey(addr types.Address, key types.Uint256) []byte {
	k := make([]byte, 0, len(slotPrefix)+types.AddressLength+types.Uint256Length)
	k = append(k, slotPrefix...)
	k = append(k, addr[:]...)
	return append(k, key[:]...)
}

func encodeAccount(acc Account) []byte {
	buf := make([]byte, accountRecordSize)
	copy(buf, acc.Balance[:])
	binary.BigEndian.PutUint64(buf[types.ValueLength:], acc.Nonce)
	copy(buf[types.ValueLength+8:], acc.CodeHash[:])
	return buf
}

func decodeAccount(buf []byte) (Account, error) {
	if len(buf) != accountRecordSize {
		return Account{}, fmt.Errorf("invalid account record: length=%d, expected=%d", len(buf), accountRecordSize)
	}
	var acc Account
	copy(acc.Balance[:], buf[:types.ValueLength])
	acc.Nonce = binary.BigEndian.Uint64(buf[types.ValueLength:])
	copy(acc.CodeHash[:], buf[types.ValueLength+8:])
	return acc, nil
}

// Account loads the account at addr. exists is false if none is stored.
func (s *Store) Account(addr types.Address) (acc Account, exists bool, err error) {
	raw, err := s.db.Get(accountKey(addr))
	if err != nil {
		return Account{}, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	if raw == nil {
		return Account{}, false, nil
	}
	acc, err = decodeAccount(raw)
	if err != nil {
		return Account{}, false, fmt.Errorf("account %s: %w", addr, err)
	}
	return acc, true, nil
}

// Code returns the code stored under hash, or nil.
func (s *Store) Code(hash types.Uint256) ([]byte, error) {
	if hash == EmptyCodeHash || hash.IsZero() {
		return nil, nil
	}
	code, err := s.db.Get(codeKey(hash))
	if err != nil {
		return nil, fmt.Errorf("read code %s: %w", hash, err)
	}
	return code, nil
}

// Slot reads a storage slot. Unset slots read as zero.
func (s *Store) Slot(addr types.Address, key types.Uint256) (types.Uint256, error) {
	raw, err := s.db.Get(slotKey(addr, key))
	if err != nil {
		return types.Uint256{}, fmt.Errorf("read slot %s/%s: %w", addr, key, err)
	}
	return types.BytesToUint256(raw), nil
}

// SlotKeys lists every stored slot key of addr.
func (s *Store) SlotKeys(addr types.Address) ([]types.Uint256, error) {
	prefix := append(append([]byte{}, slotPrefix...), addr[:]...)
	it, err := dbm.IteratePrefix(s.db, prefix)
	if err != nil {
		return nil, fmt.Errorf("iterate slots of %s: %w", addr, err)
	}
	defer it.Close()

	var keys []types.Uint256
	for ; it.Valid(); it.Next() {
		keys = append(keys, types.BytesToUint256(it.Key()[len(prefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate slots of %s: %w", addr, err)
	}
	return keys, nil
}

// NewBatch starts an atomic write.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// Batch groups writes so a transaction commits all-or-nothing.
type Batch struct {
	batch dbm.Batch
}

func (b *Batch) PutAccount(addr types.Address, acc Account) error {
	return b.batch.Set(accountKey(addr), encodeAccount(acc))
}

func (b *Batch) DeleteAccount(addr types.Address) error {
	return b.batch.Delete(accountKey(addr))
}

// PutCode stores code under its hash. Empty code is not stored.
func (b *Batch) PutCode(hash types.Uint256, code []byte) error {
	if len(code) == 0 {
		return nil
	}
	return b.batch.Set(codeKey(hash), code)
}

// PutSlot writes a slot; a zero value deletes it.
func (b *Batch) PutSlot(addr types.Address, key, value types.Uint256) error {
	if value.IsZero() {
		return b.batch.Delete(slotKey(addr, key))
	}
	return b.batch.Set(slotKey(addr, key), value[:])
}

// Write flushes the batch and releases it.
func (b *Batch) Write() error {
	defer b.batch.Close()
	return b.batch.WriteSync()
}

// Close releases the batch without writing.
func (b *Batch) Close() error {
	return b.batch.Close()
}
