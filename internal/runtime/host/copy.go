package host

import (
	"github.com/ewasm/eeivm/internal/runtime/gas"
)

// The copy functions write source[dataOffset:dataOffset+length] to
// resultOffset. Bytes past the end of the source are zero; only the
// destination range is bounds-checked.

func (f *Frame) CallDataCopy(resultOffset, dataOffset, length uint32) error {
	if err := f.begin(gas.CopyCost(gas.CostVeryLow, length)); err != nil {
		return err
	}
	return f.check(f.mem.WriteFrom(resultOffset, f.Input, dataOffset, length))
}

func (f *Frame) ReturnDataCopy(resultOffset, dataOffset, length uint32) error {
	if err := f.begin(gas.CopyCost(gas.CostVeryLow, length)); err != nil {
		return err
	}
	return f.check(f.mem.WriteFrom(resultOffset, f.ReturnData, dataOffset, length))
}

func (f *Frame) CodeCopy(resultOffset, codeOffset, length uint32) error {
	if err := f.begin(gas.CopyCost(gas.CostVeryLow, length)); err != nil {
		return err
	}
	return f.check(f.mem.WriteFrom(resultOffset, f.Code, codeOffset, length))
}

func (f *Frame) ExternalCodeCopy(addressOffset, resultOffset, codeOffset, length uint32) error {
	if err := f.begin(gas.CopyCost(gas.CostExtCode, length)); err != nil {
		return err
	}
	addr, err := f.mem.ReadAddress(addressOffset)
	if err != nil {
		return f.fail(err)
	}
	code := f.env.State.GetCode(addr)
	return f.check(f.mem.WriteFrom(resultOffset, code, codeOffset, length))
}
