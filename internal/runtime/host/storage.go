package host

import (
	"fmt"

	"github.com/ewasm/eeivm/internal/runtime/gas"
	"github.com/ewasm/eeivm/types"
)

const maxTopics = 4

// requireMutable fails the frame if it runs under a static call.
func (f *Frame) requireMutable(op string) error {
	if f.Static {
		return f.fail(fmt.Errorf("%s: %w", op, types.ErrStaticModeViolation))
	}
	return nil
}

// StorageStore writes the word at valueOffset to the slot named by the word
// at pathOffset in the storage of the executing account.
func (f *Frame) StorageStore(pathOffset, valueOffset uint32) error {
	if err := f.begin(gas.CostSReset); err != nil {
		return err
	}
	if err := f.requireMutable("storageStore"); err != nil {
		return err
	}
	key, err := f.mem.ReadUint256(pathOffset)
	if err != nil {
		return f.fail(err)
	}
	value, err := f.mem.ReadUint256(valueOffset)
	if err != nil {
		return f.fail(err)
	}
	current := f.env.State.GetState(f.Address, key)
	if extra := gas.StorageStoreCost(current, value) - gas.CostSReset; extra > 0 {
		if err := f.check(f.Gas.Charge(extra)); err != nil {
			return err
		}
	}
	f.env.State.SetState(f.Address, key, value)
	return nil
}

// StorageLoad writes the value of a slot of the executing account. Unset
// slots read as zero.
func (f *Frame) StorageLoad(pathOffset, resultOffset uint32) error {
	if err := f.begin(gas.CostSLoad); err != nil {
		return err
	}
	key, err := f.mem.ReadUint256(pathOffset)
	if err != nil {
		return f.fail(err)
	}
	if err := f.mem.Check(resultOffset, types.Uint256Length); err != nil {
		return f.fail(err)
	}
	value := f.env.State.GetState(f.Address, key)
	return f.check(f.mem.Write(resultOffset, value.Bytes()))
}

// Log appends a log entry with numberOfTopics topics read from the topic
// offsets in order. Unused topic offsets are not read.
func (f *Frame) Log(dataOffset, length, numberOfTopics uint32, topicOffsets ...uint32) error {
	if f.halted {
		return ErrHalt
	}
	if numberOfTopics > maxTopics || int(numberOfTopics) > len(topicOffsets) {
		return f.fail(fmt.Errorf("log with %d topics: %w", numberOfTopics, types.ErrInvalidTopicCount))
	}
	if err := f.begin(gas.LogCost(length, numberOfTopics)); err != nil {
		return err
	}
	if err := f.requireMutable("log"); err != nil {
		return err
	}
	data, err := f.mem.Read(dataOffset, length)
	if err != nil {
		return f.fail(err)
	}
	topics := make([]types.Uint256, numberOfTopics)
	for i := range topics {
		if topics[i], err = f.mem.ReadUint256(topicOffsets[i]); err != nil {
			return f.fail(err)
		}
	}
	f.env.State.AddLog(f.Address, topics, data)
	return nil
}
