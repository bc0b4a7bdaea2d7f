package types

// Gas represents the amount of computational resources consumed during execution.
type Gas = uint64

// GasMeter is the read-only view of a frame's gas counter.
type GasMeter interface {
	GasConsumed() Gas
	GasRemaining() Gas
}
