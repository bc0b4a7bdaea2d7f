// Package wazeroimpl runs contract frames on the wazero WebAssembly runtime.
package wazeroimpl

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ewasm/eeivm/internal/runtime/host"
	"github.com/ewasm/eeivm/types"
)

const (
	// HostModuleName is the import module contracts link the EEI from.
	HostModuleName = "ethereum"
	// MainExport is the function a frame starts executing.
	MainExport = "main"
	// MemoryExport is the linear memory the EEI reads and writes.
	MemoryExport = "memory"
)

// Runtime is a wazero-backed host.Interpreter. Compiled modules are cached
// by the keccak256 of their code.
type Runtime struct {
	runtime wazero.Runtime
	host    api.Module
	modules *lru.Cache
	logger  zerolog.Logger
}

var _ host.Interpreter = (*Runtime)(nil)

// New creates the wazero runtime, with linear memory capped by the
// configured instance limit, and instantiates the ethereum host module.
func New(ctx context.Context, config types.VMConfig, logger zerolog.Logger) (*Runtime, error) {
	rc := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(config.Limits.MemoryLimitPages()).
		WithCloseOnContextDone(true)
	r := &Runtime{
		runtime: wazero.NewRuntimeWithConfig(ctx, rc),
		logger:  logger.With().Str("module", "wazero").Logger(),
	}

	size := config.Cache.CompiledModules
	if size <= 0 {
		size = types.DefaultVMConfig().Cache.CompiledModules
	}
	modules, err := lru.NewWithEvict(size, func(key, value interface{}) {
		// instances that are still running keep working after Close
		_ = value.(wazero.CompiledModule).Close(context.Background())
	})
	if err != nil {
		r.runtime.Close(ctx)
		return nil, fmt.Errorf("create module cache: %w", err)
	}
	r.modules = modules

	if r.host, err = r.buildHostModule(ctx); err != nil {
		r.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate %s host module: %w", HostModuleName, err)
	}
	r.logger.Info().Int("cache_size", size).Msg("wazero runtime initialized")
	return r, nil
}

// Close releases every compiled module and the runtime itself.
func (r *Runtime) Close(ctx context.Context) error {
	r.modules.Purge()
	return r.runtime.Close(ctx)
}

// Cached reports how many compiled modules are held in memory.
func (r *Runtime) Cached() int {
	return r.modules.Len()
}

// Compile validates and compiles code, or returns the cached module.
func (r *Runtime) Compile(ctx context.Context, code []byte) (wazero.CompiledModule, error) {
	key := types.CodeHash(code)
	if v, ok := r.modules.Get(key); ok {
		return v.(wazero.CompiledModule), nil
	}
	compiled, err := r.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidModule, err)
	}
	if err := r.validateModule(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	r.modules.Add(key, compiled)
	r.logger.Debug().
		Str("code_hash", key.Hex()).
		Int("size", len(code)).
		Msg("compiled contract module")
	return compiled, nil
}

// validateModule checks the contract interface: main and memory exported,
// and every import resolvable in the ethereum host module.
func (r *Runtime) validateModule(compiled wazero.CompiledModule) error {
	for _, imp := range compiled.ImportedFunctions() {
		module, name, _ := imp.Import()
		if module != HostModuleName {
			return fmt.Errorf("%w: import %s.%s from unknown module", types.ErrInvalidModule, module, name)
		}
		if _, ok := r.host.ExportedFunctionDefinitions()[name]; !ok {
			return fmt.Errorf("%w: unknown host function %q", types.ErrInvalidModule, name)
		}
	}
	main, ok := compiled.ExportedFunctions()[MainExport]
	if !ok {
		return fmt.Errorf("%w: missing %q export", types.ErrInvalidModule, MainExport)
	}
	if len(main.ParamTypes()) != 0 || len(main.ResultTypes()) != 0 {
		return fmt.Errorf("%w: %q must take and return nothing", types.ErrInvalidModule, MainExport)
	}
	if _, ok := compiled.ExportedMemories()[MemoryExport]; !ok {
		return fmt.Errorf("%w: missing %q export", types.ErrInvalidModule, MemoryExport)
	}
	return nil
}

// Run executes the code of f in a fresh module instance. The instance is
// anonymous so nested frames running the same code do not clash.
func (r *Runtime) Run(ctx context.Context, f *host.Frame) error {
	compiled, err := r.Compile(ctx, f.Code)
	if err != nil {
		return err
	}
	ctx = host.WithFrame(ctx, f)
	mod, err := r.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions())
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidModule, err)
	}
	defer mod.Close(ctx)

	f.Attach(mod.Memory())
	_, err = mod.ExportedFunction(MainExport).Call(ctx)
	return err
}
