// Package chainrpc is the external collaborator named in spec §6: it
// acquires raw traces for a block and exposes the one async I/O boundary the
// core pipeline is allowed (discovery decoders fetching extra init data, per
// §5). The classification core only ever depends on the TraceSource
// interface below, never on a concrete client, so it can be driven by a
// real erpc/go-ethereum upstream in production and by a fixture-backed fake
// in tests.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// TxTraceList is the pre-order, depth-annotated trace list for one
// transaction, as handed over by the trace provider (spec §6). Depth is
// sufficient for the TxTree Builder to reconstruct parentage without an
// explicit parent pointer.
type TxTraceList struct {
	TxHash    string
	TxIndex   uint
	Valid     bool
	RawFrames []RawFrame
}

// RawFrame is one untyped call/create frame as returned by a callTracer-style
// debug_traceTransaction, before the TxTree Builder turns it into a
// models.Trace.
type RawFrame struct {
	Depth    int
	Type     string // "CALL", "DELEGATECALL", "STATICCALL", "CREATE", "CREATE2"
	From     string
	To       string
	Input    string
	Output   string
	Value    string
	Gas      string
	GasUsed  string
	Error    string
	Logs     []json.RawMessage
}

// BlockTraces is everything the classification core needs for one block.
type BlockTraces struct {
	BlockNumber uint64
	BlockHash   string
	ParentHash  string
	Timestamp   uint64
	Traces      []TxTraceList
}

// TraceSource is the external collaborator contract. classification code
// imports only this interface.
type TraceSource interface {
	// BlockTraces fetches every transaction's trace list for blockNumber.
	BlockTraces(ctx context.Context, blockNumber uint64) (*BlockTraces, error)

	// FactoryInitData fetches extra init-time context for a CREATE trace
	// (e.g. a Curve meta-factory's base-pool registry lookup) — the one
	// async boundary discovery decoders are permitted, per spec §5.
	FactoryInitData(ctx context.Context, factory string, args ...any) (map[string]any, error)
}

// ErpcSource sends every JSON-RPC request (debug_traceBlockByNumber and
// eth_call) to an erpc-fronted upstream over plain HTTP. It also holds a
// go-ethereum ethclient, which no method uses.
type ErpcSource struct {
	httpClient *http.Client
	upstream   string // erpc project/upstream URL
	eth        *ethclient.Client
}

// NewErpcSource dials an ethclient at ethRPCURL (failing if that dial fails)
// and records erpcURL as the upstream for all requests.
func NewErpcSource(ctx context.Context, erpcURL, ethRPCURL string) (*ErpcSource, error) {
	eth, err := ethclient.DialContext(ctx, ethRPCURL)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: dial eth client: %w", err)
	}
	return &ErpcSource{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		upstream:   erpcURL,
		eth:        eth,
	}, nil
}

func (s *ErpcSource) BlockTraces(ctx context.Context, blockNumber uint64) (*BlockTraces, error) {
	var resp struct {
		Result []struct {
			TxHash string     `json:"txHash"`
			Frames []RawFrame `json:"frames"`
		} `json:"result"`
	}
	if err := s.call(ctx, "debug_traceBlockByNumber", []any{hexBlock(blockNumber), map[string]string{"tracer": "callTracer"}}, &resp); err != nil {
		return nil, fmt.Errorf("chainrpc: trace block %d: %w", blockNumber, err)
	}

	out := &BlockTraces{BlockNumber: blockNumber}
	for i, tx := range resp.Result {
		out.Traces = append(out.Traces, TxTraceList{
			TxHash:    tx.TxHash,
			TxIndex:   uint(i),
			Valid:     true,
			RawFrames: tx.Frames,
		})
	}
	return out, nil
}

func (s *ErpcSource) FactoryInitData(ctx context.Context, factory string, args ...any) (map[string]any, error) {
	// Issues an eth_call to factory with empty calldata through the erpc
	// upstream and returns the raw hex result under "raw". args is not
	// encoded into the call, so no particular view function is selected.
	var result string
	if err := s.call(ctx, "eth_call", []any{
		map[string]any{"to": factory, "data": "0x"},
		"latest",
	}, &result); err != nil {
		return nil, fmt.Errorf("chainrpc: factory init data %s: %w", factory, err)
	}
	return map[string]any{"raw": result}, nil
}

func (s *ErpcSource) call(ctx context.Context, method string, params []any, dest any) error {
	type request struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
		ID      int    `json:"id"`
	}
	type response struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstream, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	var rpcResp response
	if err := json.NewDecoder(httpResp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, dest)
}

func hexBlock(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}
