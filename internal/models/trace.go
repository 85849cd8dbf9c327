package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallType mirrors the EVM call variants a Trace can carry.
type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
	CallTypeCreate       CallType = "CREATE"
	CallTypeCreate2      CallType = "CREATE2"
)

// IsCreate reports whether this call type deploys a contract.
func (c CallType) IsCreate() bool {
	return c == CallTypeCreate || c == CallTypeCreate2
}

// Trace is one EVM sub-call or CREATE frame, pre-order positioned within its
// transaction. Traces are immutable once built by the trace provider.
type Trace struct {
	TraceIndex int // depth-first position within the tx, 0-based
	Depth      int // call-stack depth; used to reconstruct parentage
	CallType   CallType
	From       common.Address
	To         common.Address // for CREATE/CREATE2, the deployed contract's address
	Input      []byte
	Output     []byte
	Logs       []types.Log // logs emitted directly at this frame, in order
	Value      *big.Int
	Gas        uint64
	GasUsed    uint64
	Error      string // non-empty if the frame reverted
}

// Selector returns the first 4 bytes of Input, or the zero selector if the
// call carries no data (a plain ETH transfer).
func (t *Trace) Selector() [4]byte {
	var sel [4]byte
	if len(t.Input) >= 4 {
		copy(sel[:], t.Input[:4])
	}
	return sel
}

// CallInfo is the projection of a Trace handed to a decoder: the trace
// index, parties, value, and the frame's raw input, logs and output.
type CallInfo struct {
	TraceIndex int
	From       common.Address
	To         common.Address
	Value      *big.Int
	CallData   []byte      // always set; decoded only if the decoder set WantsCallData
	Logs       []types.Log // always set; scanned only if the decoder set WantsLogs
	ReturnData []byte      // always set; decoded only if the decoder set WantsReturn
}

// BlockHeader summarizes the block a BlockTree was classified from.
type BlockHeader struct {
	Number    uint64
	Hash      common.Hash
	ParentHash common.Hash
	Timestamp uint64
	BaseFee   *big.Int
}
