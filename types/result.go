package types

import "fmt"

// Status is the numeric outcome a calling frame observes for a dispatched call.
type Status uint32

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
	StatusRevert  Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRevert:
		return "revert"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// CallResult is the outcome of a dispatched frame.
type CallResult struct {
	Status Status
	// Output is the data passed to return or revert. Empty on failure.
	Output []byte
	// GasUsed is what the frame consumed out of its allocation.
	GasUsed uint64
	// GasLeft is returned to the caller on success and revert, zero on failure.
	GasLeft uint64
	// Err is the cause of a failure, or ErrExecutionReverted.
	Err error
}

// Log is an entry emitted by the log EEI function.
type Log struct {
	Address     Address   `json:"address"`
	Topics      []Uint256 `json:"topics"`
	Data        []byte    `json:"data"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      Uint256   `json:"tx_hash"`
	TxIndex     uint32    `json:"tx_index"`
	// Index is the position of the log within the transaction.
	Index uint32 `json:"index"`
}

// PendingSelfDestruct marks an account for deletion at the end of the transaction.
type PendingSelfDestruct struct {
	Account     Address `json:"account"`
	Beneficiary Address `json:"beneficiary"`
}

// Receipt summarises the execution of a transaction.
type Receipt struct {
	Status          Status                `json:"status"`
	GasUsed         uint64                `json:"gas_used"`
	ReturnData      []byte                `json:"return_data"`
	Logs            []*Log                `json:"logs"`
	ContractAddress *Address              `json:"contract_address,omitempty"`
	Destructed      []PendingSelfDestruct `json:"destructed,omitempty"`
	Err             error                 `json:"-"`
}

// Succeeded reports whether the top-level frame ended with Success.
func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSuccess
}
