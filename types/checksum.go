package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// CodeHash identifies contract code. It is the keccak256 of the code and
// doubles as the key of compiled modules and stored code.
func CodeHash(code []byte) Uint256 {
	return Uint256(crypto.Keccak256Hash(code))
}

// EmptyCodeHash is the code hash of accounts without code.
var EmptyCodeHash = CodeHash(nil)

// UnmarshalText implements encoding.TextUnmarshaler. It parses 0x-prefixed hex
// of at most 32 bytes, left-padding short input.
func (u *Uint256) UnmarshalText(input []byte) error {
	data, err := hexutil.Decode(string(input))
	if err != nil {
		return err
	}
	if len(data) > Uint256Length {
		return fmt.Errorf("got %d bytes for a %d byte word", len(data), Uint256Length)
	}
	*u = BytesToUint256(data)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for 0x-prefixed hex addresses.
func (a *Address) UnmarshalText(input []byte) error {
	data, err := hexutil.Decode(string(input))
	if err != nil {
		return err
	}
	if len(data) != AddressLength {
		return fmt.Errorf("got %d bytes for an address", len(data))
	}
	copy(a[:], data)
	return nil
}
