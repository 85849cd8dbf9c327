package pipeline

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/txplain/blocktree/internal/chainrpc"
	"github.com/txplain/blocktree/internal/models"
)

// decodeRawFrames turns a callTracer-style frame list into models.Traces,
// assigning TraceIndex by position (the trace provider is required to hand
// frames over pre-order, per spec §6).
func decodeRawFrames(tx chainrpc.TxTraceList) ([]models.Trace, error) {
	traces := make([]models.Trace, 0, len(tx.RawFrames))
	for i, frame := range tx.RawFrames {
		input, err := hexutil.Decode(orZeroHex(frame.Input))
		if err != nil {
			return nil, fmt.Errorf("decode input at frame %d: %w", i, err)
		}
		output, err := hexutil.Decode(orZeroHex(frame.Output))
		if err != nil {
			return nil, fmt.Errorf("decode output at frame %d: %w", i, err)
		}

		value := new(big.Int)
		if frame.Value != "" {
			if _, ok := value.SetString(trimHexPrefix(frame.Value), 16); !ok {
				return nil, fmt.Errorf("decode value at frame %d: %q", i, frame.Value)
			}
		}

		logs, err := decodeFrameLogs(frame.Logs)
		if err != nil {
			return nil, fmt.Errorf("decode logs at frame %d: %w", i, err)
		}

		traces = append(traces, models.Trace{
			TraceIndex: i,
			Depth:      frame.Depth,
			CallType:   models.CallType(frame.Type),
			From:       common.HexToAddress(frame.From),
			To:         common.HexToAddress(frame.To),
			Input:      input,
			Output:     output,
			Logs:       logs,
			Value:      value,
			Error:      frame.Error,
		})
	}
	return traces, nil
}

func decodeFrameLogs(raw []json.RawMessage) ([]types.Log, error) {
	logs := make([]types.Log, 0, len(raw))
	for _, r := range raw {
		var entry struct {
			Address common.Address `json:"address"`
			Topics  []common.Hash  `json:"topics"`
			Data    hexutil.Bytes  `json:"data"`
		}
		if err := json.Unmarshal(r, &entry); err != nil {
			return nil, err
		}
		logs = append(logs, types.Log{
			Address: entry.Address,
			Topics:  entry.Topics,
			Data:    entry.Data,
		})
	}
	return logs, nil
}

func orZeroHex(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
