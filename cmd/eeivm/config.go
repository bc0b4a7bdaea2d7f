package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/naoina/toml"

	"github.com/ewasm/eeivm/types"
)

// Field names in the environment file match the Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type blockConfig struct {
	Number     uint64
	Timestamp  uint64
	GasLimit   uint64
	Difficulty string `toml:",omitempty"`
	Coinbase   string `toml:",omitempty"`
}

type txConfig struct {
	From     string
	GasLimit uint64
	GasPrice string `toml:",omitempty"`
	Value    string `toml:",omitempty"`
}

type accountConfig struct {
	Address string
	Balance string `toml:",omitempty"`
	Nonce   uint64
	// Code is hex encoded, or @path to a wasm file.
	Code    string            `toml:",omitempty"`
	Storage map[string]string `toml:",omitempty"`
}

type envConfig struct {
	Block   blockConfig
	Tx      txConfig
	Genesis []accountConfig `toml:",omitempty"`
}

func defaultEnvConfig() envConfig {
	return envConfig{
		Block: blockConfig{Number: 1, GasLimit: 8_000_000},
		Tx:    txConfig{GasLimit: 1_000_000},
	}
}

func loadEnvConfig(file string, cfg *envConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func parseAddress(s string) (types.Address, error) {
	if !common.IsHexAddress(s) {
		return types.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return types.Address(common.HexToAddress(s)), nil
}

func parseValue(s string) (types.Value, error) {
	if s == "" {
		return types.Value{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return types.Value{}, fmt.Errorf("value %q: %w", s, err)
	}
	if len(b) > types.ValueLength {
		return types.Value{}, fmt.Errorf("value %q exceeds %d bytes", s, types.ValueLength)
	}
	return types.BytesToValue(b), nil
}

func parseWord(s string) (types.Uint256, error) {
	if s == "" {
		return types.Uint256{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return types.Uint256{}, fmt.Errorf("word %q: %w", s, err)
	}
	if len(b) > types.Uint256Length {
		return types.Uint256{}, fmt.Errorf("word %q exceeds %d bytes", s, types.Uint256Length)
	}
	return types.BytesToUint256(b), nil
}

// parseCode reads @path as a wasm file and anything else as hex.
func parseCode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if s[0] == '@' {
		return os.ReadFile(s[1:])
	}
	return hexutil.Decode(s)
}

func (c blockConfig) context() (types.BlockContext, error) {
	difficulty, err := parseWord(c.Difficulty)
	if err != nil {
		return types.BlockContext{}, err
	}
	var coinbase types.Address
	if c.Coinbase != "" {
		if coinbase, err = parseAddress(c.Coinbase); err != nil {
			return types.BlockContext{}, err
		}
	}
	return types.BlockContext{
		Number:     c.Number,
		Timestamp:  c.Timestamp,
		GasLimit:   c.GasLimit,
		Difficulty: difficulty,
		Coinbase:   coinbase,
		GetHash:    blockHash,
	}, nil
}

// blockHash derives a stand-in ancestor hash; the CLI has no chain.
func blockHash(number uint64) types.Uint256 {
	return types.Uint256(crypto.Keccak256Hash(types.Uint256FromUint64(number).Bytes()))
}

func (c txConfig) transaction(to *types.Address, data []byte, nonce uint64) (types.Transaction, error) {
	from, err := parseAddress(c.From)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("tx sender: %w", err)
	}
	value, err := parseValue(c.Value)
	if err != nil {
		return types.Transaction{}, err
	}
	price, err := parseValue(c.GasPrice)
	if err != nil {
		return types.Transaction{}, err
	}
	hash := crypto.Keccak256Hash(from.Bytes(), types.Uint256FromUint64(nonce).Bytes(), data)
	return types.Transaction{
		From:     from,
		To:       to,
		Value:    value,
		Data:     data,
		GasLimit: c.GasLimit,
		GasPrice: price,
		Hash:     types.Uint256(hash),
	}, nil
}

func (c envConfig) genesis() (types.GenesisAlloc, error) {
	alloc := make(types.GenesisAlloc, len(c.Genesis))
	for _, acc := range c.Genesis {
		addr, err := parseAddress(acc.Address)
		if err != nil {
			return nil, err
		}
		balance, err := parseValue(acc.Balance)
		if err != nil {
			return nil, err
		}
		code, err := parseCode(acc.Code)
		if err != nil {
			return nil, fmt.Errorf("code of %s: %w", addr, err)
		}
		storage := make(map[types.Uint256]types.Uint256, len(acc.Storage))
		for k, v := range acc.Storage {
			key, err := parseWord(k)
			if err != nil {
				return nil, err
			}
			if storage[key], err = parseWord(v); err != nil {
				return nil, err
			}
		}
		alloc[addr] = types.GenesisAccount{Balance: balance, Nonce: acc.Nonce, Code: code, Storage: storage}
	}
	return alloc, nil
}
