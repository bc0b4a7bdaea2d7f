package eeivm

import "github.com/ewasm/eeivm/types"

// Aliases so callers of the VM rarely need to import the types package.
type (
	Address      = types.Address
	Uint256      = types.Uint256
	Value        = types.Value
	BlockContext = types.BlockContext
	Transaction  = types.Transaction
	Receipt      = types.Receipt
	GenesisAlloc = types.GenesisAlloc
	VMConfig     = types.VMConfig
)
