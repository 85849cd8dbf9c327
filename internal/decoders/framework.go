// Package decoders implements the Action Decoder framework of spec §4.C: a
// single generic engine that slices calldata/logs/return data per a
// declarative ABI schema, then calls a pure transformation body. Individual
// protocol decoders (uniswapv2.go, makerpsm.go, ...) only supply the schema
// and the transformation body — none of them hand-roll ABI parsing.
//
// This is the "runtime registry with a single generic decode engine
// parameterized by an ABI schema descriptor" option named in spec §9, chosen
// over Go-side code generation because Go has no macro system to mirror the
// source's compile-time expansion.
package decoders

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/store"
)

// DecodedParams holds the decoded fields of one call, return value or log,
// keyed by their ABI argument names.
type DecodedParams map[string]any

// DecodedLog is one matched-and-decoded log, tagged with the declared name
// it satisfied (so a transform body keyed on more than one log type of the
// same event signature can tell them apart — see the disambiguation note in
// spec §9's open questions).
type DecodedLog struct {
	Name    string
	Address common.Address // contract that emitted the log, for decoders matching by signature across tokens
	Fields  DecodedParams
}

// TransformFunc is a decoder's pure transformation body: everything it needs
// to build a single Action, handed the already-decoded views the spec
// requested. May return a *models.ClassificationError of kind Decode,
// MissingMetadata, or Arithmetic (§4.C).
type TransformFunc func(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error)

// LogSpec names one event the decoder expects to see, in emission order.
// Multiple LogSpecs sharing a Signature are matched against distinct
// occurrences, in order (spec §4.C point 2 and the §9 open question about
// disambiguating shared signatures: here, simply "the Nth spec with this
// signature claims the Nth unconsumed log with this signature").
type LogSpec struct {
	Name      string    // label surfaced to the transform body via DecodedLog.Name
	Event     abi.Event // parsed event descriptor (ID, Inputs)
	Optional  bool      // if false, a missing match is a Decode error (§4.C point 2)
}

// Spec is a decoder's complete static declaration: which views it wants, the
// ABI method for calldata/return decoding, the ordered log types it expects,
// and the transformation body.
type Spec struct {
	Protocol      string
	Method        *abi.Method // used for calldata and return decoding; may be nil when neither is wanted
	WantsCallData bool
	WantsLogs     bool
	WantsReturn   bool
	ExpectedLogs  []LogSpec
	Transform     TransformFunc
}

// Decoder adapts a Spec into the registry.ActionDecoder interface. It is the
// only place ABI slicing happens; every concrete decoder in this package is
// just a Spec value.
type Decoder struct {
	spec Spec
}

// New wraps spec as a registry.ActionDecoder.
func New(spec Spec) *Decoder {
	return &Decoder{spec: spec}
}

// Decode implements registry.ActionDecoder.
func (d *Decoder) Decode(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace) (models.Action, error) {
	var callData DecodedParams
	if d.spec.WantsCallData {
		decoded, err := decodeCallData(d.spec.Method, info.CallData)
		if err != nil {
			return nil, models.NewClassificationError(models.ErrorKindDecode, info.TraceIndex, d.spec.Protocol, err)
		}
		callData = decoded
	}

	var logs []DecodedLog
	if d.spec.WantsLogs {
		matched, err := matchLogs(d.spec.ExpectedLogs, info.Logs)
		if err != nil {
			return nil, models.NewClassificationError(models.ErrorKindDecode, info.TraceIndex, d.spec.Protocol, err)
		}
		logs = matched
	}

	var returnData DecodedParams
	if d.spec.WantsReturn && d.spec.Method != nil {
		decoded, err := decodeReturnData(d.spec.Method, info.ReturnData)
		if err != nil {
			return nil, models.NewClassificationError(models.ErrorKindDecode, info.TraceIndex, d.spec.Protocol, err)
		}
		returnData = decoded
	}

	action, err := d.spec.Transform(ctx, snap, info, trace, callData, logs, returnData)
	if err != nil {
		if _, ok := err.(*models.ClassificationError); ok {
			return nil, err
		}
		return nil, models.NewClassificationError(models.ErrorKindDecode, info.TraceIndex, d.spec.Protocol, err)
	}
	return action, nil
}

// decodeCallData slices the 4-byte selector off input and ABI-decodes the
// remainder per method's Inputs.
func decodeCallData(method *abi.Method, input []byte) (DecodedParams, error) {
	if method == nil {
		return nil, fmt.Errorf("decoder: calldata requested with no ABI method")
	}
	if len(input) < 4 {
		return nil, fmt.Errorf("decoder: input too short for a selector")
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("decoder: unpack calldata for %s: %w", method.Name, err)
	}
	return zipParams(method.Inputs, values), nil
}

func decodeReturnData(method *abi.Method, output []byte) (DecodedParams, error) {
	if len(output) == 0 {
		return DecodedParams{}, nil
	}
	values, err := method.Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("decoder: unpack return data for %s: %w", method.Name, err)
	}
	return zipParams(method.Outputs, values), nil
}

func zipParams(args abi.Arguments, values []any) DecodedParams {
	out := make(DecodedParams, len(args))
	for i, arg := range args {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}

// matchLogs scans trace logs, in emission order, for the first unconsumed
// occurrence of each expected event signature. Extra logs are ignored; a
// required (non-Optional) LogSpec with no match is a Decode error (§4.C).
func matchLogs(specs []LogSpec, txLogs []gethtypes.Log) ([]DecodedLog, error) {
	consumed := make([]bool, len(txLogs))
	out := make([]DecodedLog, 0, len(specs))

	for _, spec := range specs {
		found := false
		for i, log := range txLogs {
			if consumed[i] || len(log.Topics) == 0 || log.Topics[0] != spec.Event.ID {
				continue
			}
			fields, err := decodeLogFields(spec.Event, log)
			if err != nil {
				return nil, fmt.Errorf("decoder: decode log %s: %w", spec.Name, err)
			}
			out = append(out, DecodedLog{Name: spec.Name, Address: log.Address, Fields: fields})
			consumed[i] = true
			found = true
			break
		}
		if !found && !spec.Optional {
			return nil, fmt.Errorf("decoder: required log %q not found in emission order", spec.Name)
		}
	}
	return out, nil
}

func decodeLogFields(event abi.Event, log gethtypes.Log) (DecodedParams, error) {
	out := make(DecodedParams)

	var indexed abi.Arguments
	var nonIndexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}

	if len(nonIndexed) > 0 {
		values, err := nonIndexed.Unpack(log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack non-indexed fields: %w", err)
		}
		for k, v := range zipParams(nonIndexed, values) {
			out[k] = v
		}
	}

	if len(log.Topics) > 1 {
		if err := abi.ParseTopicsIntoMap(out, indexed, log.Topics[1:]); err != nil {
			return nil, fmt.Errorf("unpack indexed fields: %w", err)
		}
	}

	return out, nil
}
