package wazeroimpl

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/ewasm/eeivm/internal/runtime/host"
)

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

const (
	// exitHalt ends a frame that stopped through return, revert or selfDestruct.
	exitHalt uint32 = 0
	// exitFault ends a frame that failed inside a host function.
	exitFault uint32 = 1
)

// hostFunc is one EEI import. call decodes the wasm stack, invokes the
// frame and encodes results back onto the stack.
type hostFunc struct {
	names   []string
	params  []api.ValueType
	results []api.ValueType
	call    func(ctx context.Context, f *host.Frame, stack []uint64) error
}

func u32(v uint64) uint32 { return api.DecodeU32(v) }

func s64(v uint64) int64 { return int64(v) }

func hostFunctions() []hostFunc {
	return []hostFunc{
		{[]string{"useGas"}, []api.ValueType{i64}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.UseGas(s64(s[0])) }},
		{[]string{"getGasLeft"}, nil, []api.ValueType{i64},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetGasLeft()
				s[0] = api.EncodeI64(v)
				return err
			}},
		{[]string{"getAddress"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetAddress(u32(s[0])) }},
		{[]string{"getBalance", "getExternalBalance"}, []api.ValueType{i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetBalance(u32(s[0]), u32(s[1])) }},
		{[]string{"getCaller"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetCaller(u32(s[0])) }},
		{[]string{"getCallValue"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetCallValue(u32(s[0])) }},
		{[]string{"getCallDataSize"}, nil, []api.ValueType{i32},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetCallDataSize()
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"getReturnDataSize"}, nil, []api.ValueType{i32},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetReturnDataSize()
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"getCodeSize"}, nil, []api.ValueType{i32},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetCodeSize()
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"getExternalCodeSize"}, []api.ValueType{i32}, []api.ValueType{i32},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetExternalCodeSize(u32(s[0]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"getTxOrigin"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetTxOrigin(u32(s[0])) }},
		{[]string{"getTxGasPrice"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetTxGasPrice(u32(s[0])) }},
		{[]string{"getBlockHash"}, []api.ValueType{i64, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetBlockHash(s64(s[0]), u32(s[1])) }},
		{[]string{"getBlockCoinBase", "getBlockCoinbase"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetBlockCoinbase(u32(s[0])) }},
		{[]string{"getBlockDifficulty"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.GetBlockDifficulty(u32(s[0])) }},
		{[]string{"getBlockNumber"}, nil, []api.ValueType{i64},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetBlockNumber()
				s[0] = api.EncodeI64(v)
				return err
			}},
		{[]string{"getBlockTimestamp"}, nil, []api.ValueType{i64},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetBlockTimestamp()
				s[0] = api.EncodeI64(v)
				return err
			}},
		{[]string{"getBlockGasLimit"}, nil, []api.ValueType{i64},
			func(_ context.Context, f *host.Frame, s []uint64) error {
				v, err := f.GetBlockGasLimit()
				s[0] = api.EncodeI64(v)
				return err
			}},
		{[]string{"storageStore"}, []api.ValueType{i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.StorageStore(u32(s[0]), u32(s[1])) }},
		{[]string{"storageLoad"}, []api.ValueType{i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.StorageLoad(u32(s[0]), u32(s[1])) }},
		{[]string{"log"}, []api.ValueType{i32, i32, i32, i32, i32, i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error {
				return f.Log(u32(s[0]), u32(s[1]), u32(s[2]), u32(s[3]), u32(s[4]), u32(s[5]), u32(s[6]))
			}},
		{[]string{"callDataCopy"}, []api.ValueType{i32, i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error {
				return f.CallDataCopy(u32(s[0]), u32(s[1]), u32(s[2]))
			}},
		{[]string{"returnDataCopy"}, []api.ValueType{i32, i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error {
				return f.ReturnDataCopy(u32(s[0]), u32(s[1]), u32(s[2]))
			}},
		{[]string{"codeCopy"}, []api.ValueType{i32, i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error {
				return f.CodeCopy(u32(s[0]), u32(s[1]), u32(s[2]))
			}},
		{[]string{"externalCodeCopy"}, []api.ValueType{i32, i32, i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error {
				return f.ExternalCodeCopy(u32(s[0]), u32(s[1]), u32(s[2]), u32(s[3]))
			}},
		{[]string{"call"}, []api.ValueType{i64, i32, i32, i32, i32}, []api.ValueType{i32},
			func(ctx context.Context, f *host.Frame, s []uint64) error {
				v, err := f.Call(ctx, s64(s[0]), u32(s[1]), u32(s[2]), u32(s[3]), u32(s[4]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"callCode"}, []api.ValueType{i64, i32, i32, i32, i32}, []api.ValueType{i32},
			func(ctx context.Context, f *host.Frame, s []uint64) error {
				v, err := f.CallCode(ctx, s64(s[0]), u32(s[1]), u32(s[2]), u32(s[3]), u32(s[4]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"callDelegate"}, []api.ValueType{i64, i32, i32, i32}, []api.ValueType{i32},
			func(ctx context.Context, f *host.Frame, s []uint64) error {
				v, err := f.CallDelegate(ctx, s64(s[0]), u32(s[1]), u32(s[2]), u32(s[3]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"callStatic"}, []api.ValueType{i64, i32, i32, i32}, []api.ValueType{i32},
			func(ctx context.Context, f *host.Frame, s []uint64) error {
				v, err := f.CallStatic(ctx, s64(s[0]), u32(s[1]), u32(s[2]), u32(s[3]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"create"}, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32},
			func(ctx context.Context, f *host.Frame, s []uint64) error {
				v, err := f.Create(ctx, u32(s[0]), u32(s[1]), u32(s[2]), u32(s[3]))
				s[0] = api.EncodeU32(v)
				return err
			}},
		{[]string{"return", "finish"}, []api.ValueType{i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.Return(u32(s[0]), u32(s[1])) }},
		{[]string{"revert"}, []api.ValueType{i32, i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.Revert(u32(s[0]), u32(s[1])) }},
		{[]string{"selfDestruct"}, []api.ValueType{i32}, nil,
			func(_ context.Context, f *host.Frame, s []uint64) error { return f.SelfDestruct(u32(s[0])) }},
	}
}

// buildHostModule defines and instantiates the ethereum host module.
// Every function finds its frame through the call context; an error ends
// the wasm execution with an exit code, the frame keeps the real outcome.
func (r *Runtime) buildHostModule(ctx context.Context) (api.Module, error) {
	builder := r.runtime.NewHostModuleBuilder(HostModuleName)
	for _, hf := range hostFunctions() {
		r.export(builder, hf)
	}
	return builder.Instantiate(ctx)
}

func (r *Runtime) export(builder wazero.HostModuleBuilder, hf hostFunc) {
	name := hf.names[0]
	fn := api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
		f := host.FrameFromContext(ctx)
		if f == nil {
			r.logger.Error().Str("function", name).Msg("host function called outside of a frame")
			panic(sys.NewExitError(exitFault))
		}
		if err := hf.call(ctx, f, stack); err != nil {
			if errors.Is(err, host.ErrHalt) {
				panic(sys.NewExitError(exitHalt))
			}
			r.logger.Debug().
				Str("function", name).
				Int("depth", f.Depth()).
				Err(err).
				Msg("host function failed")
			panic(sys.NewExitError(exitFault))
		}
	})
	for _, export := range hf.names {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, hf.params, hf.results).
			Export(export)
	}
}
