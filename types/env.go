package types

//---------- Env ---------

// BlockContext holds the block header fields visible to contracts.
// It is populated once per transaction by the chain loader.
type BlockContext struct {
	Number     uint64  `json:"number"`
	Timestamp  uint64  `json:"timestamp"`
	GasLimit   uint64  `json:"gas_limit"`
	Difficulty Uint256 `json:"difficulty"`
	Coinbase   Address `json:"coinbase"`
	// GetHash returns the hash of an ancestor block. Only called for numbers
	// inside the retrievable window, see BlockHashWindow.
	GetHash func(number uint64) Uint256 `json:"-"`
}

// TxContext holds the transaction-level fields visible to contracts.
type TxContext struct {
	Origin   Address `json:"origin"`
	GasPrice Value   `json:"gas_price"`
	// Hash identifies the transaction in emitted logs.
	Hash Uint256 `json:"hash"`
	// Index is the position of the transaction in its block.
	Index uint32 `json:"index"`
}

// Transaction is the top-level message that starts execution.
// A nil To deploys Data as init code.
type Transaction struct {
	From     Address  `json:"from"`
	To       *Address `json:"to,omitempty"`
	Value    Value    `json:"value"`
	Data     []byte   `json:"data"`
	GasLimit uint64   `json:"gas_limit"`
	GasPrice Value    `json:"gas_price"`
	Hash     Uint256  `json:"hash"`
	Index    uint32   `json:"index"`
}

// TxContext derives the transaction context for the frames of tx.
func (tx Transaction) TxContext() TxContext {
	return TxContext{
		Origin:   tx.From,
		GasPrice: tx.GasPrice,
		Hash:     tx.Hash,
		Index:    tx.Index,
	}
}

// GenesisAccount seeds an account before any transaction runs.
type GenesisAccount struct {
	Balance Value               `json:"balance"`
	Nonce   uint64              `json:"nonce"`
	Code    []byte              `json:"code,omitempty"`
	Storage map[Uint256]Uint256 `json:"storage,omitempty"`
}

// GenesisAlloc maps addresses to their initial state.
type GenesisAlloc map[Address]GenesisAccount
