// Package gas implements the per-frame gas counter and the EEI cost table.
package gas

import (
	"github.com/ewasm/eeivm/types"
)

// Meter tracks the gas of one frame. It only decreases, except when
// a child frame hands back part of an allocation it was forwarded.
type Meter struct {
	limit     uint64
	remaining uint64
	// outstanding is gas forwarded to children that have not completed yet
	outstanding uint64
}

var _ types.GasMeter = (*Meter)(nil)

// NewMeter creates a meter holding limit gas.
func NewMeter(limit uint64) *Meter {
	return &Meter{
		limit:     limit,
		remaining: limit,
	}
}

// Charge subtracts amount. If amount exceeds what is left the counter
// drops to zero and a *types.GasError is returned.
func (m *Meter) Charge(amount uint64) error {
	if amount > m.remaining {
		err := &types.GasError{
			Wanted:    amount,
			Available: m.remaining,
		}
		m.remaining = 0
		return err
	}
	m.remaining -= amount
	return nil
}

// Forward carves an allocation for a child frame out of the remaining gas.
// The child gets at most requested, and never more than all but one 64th
// of what is left, so the caller can always finish its own bookkeeping.
func (m *Meter) Forward(requested uint64) uint64 {
	available := m.remaining - m.remaining/64
	if requested > available {
		requested = available
	}
	m.remaining -= requested
	m.outstanding += requested
	return requested
}

// Settle closes an allocation made by Forward. leftover is the unused part
// handed back by the child; pass zero when the child failed.
func (m *Meter) Settle(forwarded, leftover uint64) {
	if forwarded > m.outstanding {
		forwarded = m.outstanding
	}
	if leftover > forwarded {
		leftover = forwarded
	}
	m.outstanding -= forwarded
	m.remaining += leftover
}

// Exhaust forfeits everything that is left.
func (m *Meter) Exhaust() {
	m.remaining = 0
}

func (m *Meter) Limit() uint64 {
	return m.limit
}

// GasRemaining returns the amount of gas left.
func (m *Meter) GasRemaining() uint64 {
	return m.remaining
}

// GasConsumed returns what the frame has spent, including gas its children burnt.
func (m *Meter) GasConsumed() uint64 {
	return m.limit - m.remaining - m.outstanding
}

// HasGas checks if there is any gas left
func (m *Meter) HasGas() bool {
	return m.remaining > 0
}
