package state

import (
	"github.com/ewasm/eeivm/internal/runtime/db"
	"github.com/ewasm/eeivm/types"
)

// stateObject is the in-memory overlay of one account.
type stateObject struct {
	address types.Address
	data    db.Account

	code       []byte
	codeLoaded bool
	dirtyCode  bool

	// originStorage caches slots as read from the store; storage holds the
	// current values. Slots of a created object never read through.
	originStorage map[types.Uint256]types.Uint256
	storage       map[types.Uint256]types.Uint256

	created bool
	deleted bool
}

func newObject(addr types.Address, data db.Account) *stateObject {
	return &stateObject{
		address:       addr,
		data:          data,
		originStorage: make(map[types.Uint256]types.Uint256),
		storage:       make(map[types.Uint256]types.Uint256),
	}
}

func (o *stateObject) setBalance(v types.Value) { o.data.Balance = v }

func (o *stateObject) setNonce(n uint64) { o.data.Nonce = n }

func (o *stateObject) setCode(hash types.Uint256, code []byte) {
	o.code = code
	o.codeLoaded = true
	o.data.CodeHash = hash
	o.dirtyCode = true
}

func (o *stateObject) setState(key, value types.Uint256) {
	o.storage[key] = value
}

func (o *stateObject) hasCode() bool {
	return o.data.CodeHash != db.EmptyCodeHash && !o.data.CodeHash.IsZero()
}
