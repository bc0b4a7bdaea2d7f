package host

import (
	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

// Return halts the frame with Success and the given output. It is
// imported by contracts as both return and finish.
func (f *Frame) Return(dataOffset, length uint32) error {
	return f.terminate(types.StatusSuccess, dataOffset, length)
}

// Revert halts the frame with Revert. The caller rolls back every state
// change made by this frame and its descendants.
func (f *Frame) Revert(dataOffset, length uint32) error {
	return f.terminate(types.StatusRevert, dataOffset, length)
}

func (f *Frame) terminate(status types.Status, dataOffset, length uint32) error {
	if err := f.begin(gas.CostZero); err != nil {
		return err
	}
	data, err := f.mem.Read(dataOffset, length)
	if err != nil {
		return f.fail(err)
	}
	return f.halt(status, data)
}

// SelfDestruct moves the whole balance of the executing account to the
// beneficiary at addressOffset and halts with Success. The account is
// deleted when the transaction finalises.
func (f *Frame) SelfDestruct(addressOffset uint32) error {
	if err := f.begin(gas.CostSelfDestruct); err != nil {
		return err
	}
	if err := f.requireMutable("selfDestruct"); err != nil {
		return err
	}
	beneficiary, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return f.fail(err)
	}
	if err := f.env.State.SelfDestruct(f.Address, beneficiary); err != nil {
		return f.fail(err)
	}
	return f.halt(types.StatusSuccess, nil)
}
