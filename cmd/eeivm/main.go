// Command eeivm deploys and calls ewasm contracts against a local database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ewasm/eeivm"
	"github.com/ewasm/eeivm/types"
)

var (
	Version = "dev"
	Commit  = "none"
)

type globalFlags struct {
	dataDir  string
	backend  string
	envFile  string
	logLevel string
}

func main() {
	var flags globalFlags
	rootCmd := &cobra.Command{
		Use:           "eeivm",
		Short:         "Run ewasm contracts through the Ethereum Environment Interface",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "datadir", "eeivm-data", "Directory of the state database")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "db-backend", string(dbm.GoLevelDBBackend), "Database backend")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env", "", "TOML file with block, transaction and genesis settings")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the genesis accounts of the environment file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVM(flags, func(vm *eeivm.VM, env envConfig) error {
				alloc, err := env.genesis()
				if err != nil {
					return err
				}
				return vm.SetGenesis(alloc)
			})
		},
	}

	deployCmd := &cobra.Command{
		Use:   "deploy <code>",
		Short: "Deploy init code (hex or @file.wasm) and print the receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return err
			}
			return withVM(flags, func(vm *eeivm.VM, env envConfig) error {
				return apply(cmd.Context(), vm, env, nil, code)
			})
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <address> [calldata]",
		Short: "Call a contract with hex call data and print the receipt",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if len(args) == 2 {
				if data, err = hexutil.Decode(args[1]); err != nil {
					return fmt.Errorf("call data: %w", err)
				}
			}
			return withVM(flags, func(vm *eeivm.VM, env envConfig) error {
				return apply(cmd.Context(), vm, env, &to, data)
			})
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <address>",
		Short: "Print the committed state of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return withVM(flags, func(vm *eeivm.VM, _ envConfig) error {
				return inspect(vm, addr)
			})
		},
	}

	rootCmd.AddCommand(initCmd, deployCmd, runCmd, inspectCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}

// withVM opens the database, loads the environment and runs fn.
func withVM(flags globalFlags, fn func(vm *eeivm.VM, env envConfig) error) error {
	logger, err := newLogger(flags.logLevel)
	if err != nil {
		return err
	}
	env := defaultEnvConfig()
	if flags.envFile != "" {
		if err := loadEnvConfig(flags.envFile, &env); err != nil {
			return err
		}
	}

	database, err := dbm.NewDB("state", dbm.BackendType(flags.backend), flags.dataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	vm, err := eeivm.NewVM(types.DefaultVMConfig(), database, logger)
	if err != nil {
		return err
	}
	defer vm.Cleanup()
	return fn(vm, env)
}

func apply(ctx context.Context, vm *eeivm.VM, env envConfig, to *types.Address, data []byte) error {
	block, err := env.Block.context()
	if err != nil {
		return err
	}
	from, err := parseAddress(env.Tx.From)
	if err != nil {
		return fmt.Errorf("tx sender: %w", err)
	}
	nonce, err := vm.Nonce(from)
	if err != nil {
		return err
	}
	tx, err := env.Tx.transaction(to, data, nonce)
	if err != nil {
		return err
	}
	receipt, err := vm.ApplyTransaction(ctx, block, tx)
	if err != nil {
		return err
	}
	return printJSON(newReceiptOutput(receipt))
}

type logOutput struct {
	Address types.Address   `json:"address"`
	Topics  []types.Uint256 `json:"topics"`
	Data    hexutil.Bytes   `json:"data"`
}

type receiptOutput struct {
	Status          string                      `json:"status"`
	GasUsed         hexutil.Uint64              `json:"gasUsed"`
	ReturnData      hexutil.Bytes               `json:"returnData"`
	Logs            []logOutput                 `json:"logs"`
	ContractAddress *types.Address              `json:"contractAddress,omitempty"`
	Destructed      []types.PendingSelfDestruct `json:"destructed,omitempty"`
	Error           string                      `json:"error,omitempty"`
}

func newReceiptOutput(r *types.Receipt) receiptOutput {
	out := receiptOutput{
		Status:          r.Status.String(),
		GasUsed:         hexutil.Uint64(r.GasUsed),
		ReturnData:      r.ReturnData,
		Logs:            make([]logOutput, 0, len(r.Logs)),
		ContractAddress: r.ContractAddress,
		Destructed:      r.Destructed,
	}
	for _, l := range r.Logs {
		out.Logs = append(out.Logs, logOutput{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type accountOutput struct {
	Address types.Address                   `json:"address"`
	Balance string                          `json:"balance"`
	Nonce   uint64                          `json:"nonce"`
	Code    hexutil.Bytes                   `json:"code,omitempty"`
	Storage map[types.Uint256]types.Uint256 `json:"storage,omitempty"`
}

func inspect(vm *eeivm.VM, addr types.Address) error {
	balance, err := vm.Balance(addr)
	if err != nil {
		return err
	}
	nonce, err := vm.Nonce(addr)
	if err != nil {
		return err
	}
	code, err := vm.Code(addr)
	if err != nil {
		return err
	}
	keys, err := vm.StorageKeys(addr)
	if err != nil {
		return err
	}
	out := accountOutput{
		Address: addr,
		Balance: balance.String(),
		Nonce:   nonce,
		Code:    code,
		Storage: make(map[types.Uint256]types.Uint256, len(keys)),
	}
	for _, k := range keys {
		if out.Storage[k], err = vm.StorageAt(addr, k); err != nil {
			return err
		}
	}
	return printJSON(out)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
