package gas

// Costs charged by the EEI host functions.
const (
	CostZero         uint64 = 0
	CostBase         uint64 = 2
	CostVeryLow      uint64 = 3
	CostLow          uint64 = 5
	CostMid          uint64 = 8
	CostHigh         uint64 = 10
	CostExtCode      uint64 = 700
	CostBalance      uint64 = 400
	CostSLoad        uint64 = 200
	CostSSet         uint64 = 20000
	CostSReset       uint64 = 5000
	CostCreate       uint64 = 32000
	CostCall         uint64 = 700
	CostCallValue    uint64 = 9000
	CostLog          uint64 = 375
	CostLogData      uint64 = 8
	CostLogTopic     uint64 = 375
	CostCopy         uint64 = 3
	CostBlockHash    uint64 = 800
	CostSelfDestruct uint64 = 5000
	CostCodeDeposit  uint64 = 200
)

// Words returns the number of 32-byte words needed to hold length bytes.
func Words(length uint32) uint64 {
	return (uint64(length) + 31) / 32
}

// CopyCost is the charge for copying length bytes into contract memory.
func CopyCost(base uint64, length uint32) uint64 {
	return base + CostCopy*Words(length)
}

// LogCost is the charge for a log entry with the given data size and topic count.
func LogCost(length, topics uint32) uint64 {
	return CostLog + CostLogData*uint64(length) + CostLogTopic*uint64(topics)
}

// StorageStoreCost prices a write: setting a zero slot to non-zero costs
// CostSSet, every other transition costs CostSReset.
func StorageStoreCost(current, next [32]byte) uint64 {
	if isZero(current) && !isZero(next) {
		return CostSSet
	}
	return CostSReset
}

func isZero(w [32]byte) bool {
	return w == [32]byte{}
}
