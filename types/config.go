package types

import (
	"encoding/json"
)

const (
	// DefaultMaxCallDepth matches the EVM call/create depth limit.
	DefaultMaxCallDepth = 1024
	// DefaultMaxCodeSize is the largest code a create may deploy (EIP-170).
	DefaultMaxCodeSize = 24576
	// BlockHashWindow is how many ancestor block hashes getBlockHash can see.
	BlockHashWindow = 256
	// WasmPageSize is the size of one page of contract linear memory.
	WasmPageSize = 65536
)

// VMConfig defines the configuration for the VM.
type VMConfig struct {
	Limits ExecutionLimits `json:"limits"`
	Cache  CacheOptions    `json:"cache"`
}

// ExecutionLimits bound what a single transaction may do.
type ExecutionLimits struct {
	MaxCallDepth uint32 `json:"max_call_depth"`
	MaxCodeSize  uint32 `json:"max_code_size"`
	// InstanceMemoryLimit caps the linear memory of every frame.
	InstanceMemoryLimit Size `json:"instance_memory_limit"`
}

type CacheOptions struct {
	// CompiledModules is the number of compiled contract modules kept in memory.
	CompiledModules int `json:"compiled_modules"`
}

// DefaultVMConfig returns the limits used when nothing else is configured.
func DefaultVMConfig() VMConfig {
	return VMConfig{
		Limits: ExecutionLimits{
			MaxCallDepth:        DefaultMaxCallDepth,
			MaxCodeSize:         DefaultMaxCodeSize,
			InstanceMemoryLimit: NewSizeMebi(32),
		},
		Cache: CacheOptions{
			CompiledModules: 128,
		},
	}
}

// MemoryLimitPages converts InstanceMemoryLimit into whole wasm pages, at least one.
func (l ExecutionLimits) MemoryLimitPages() uint32 {
	pages := l.InstanceMemoryLimit.Uint32() / WasmPageSize
	if pages == 0 {
		return 1
	}
	return pages
}

type Size struct{ uint32 }

func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.uint32)
}

func (s *Size) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &s.uint32)
}

func (s Size) Uint32() uint32 {
	return s.uint32
}

func NewSize(v uint32) Size {
	return Size{v}
}

func NewSizeKibi(v uint32) Size {
	return Size{v * 1024}
}

func NewSizeMebi(v uint32) Size {
	return Size{v * 1024 * 1024}
}
