// Package discovery implements the factory decoder framework of spec §4.D:
// classifying a CREATE trace into the pool(s) it deployed, and registering
// them with the metadata store so later traces — in this tx or a later block
// — dispatch against them. Built on the same ABI-slicing approach as
// internal/decoders, parameterized by the factory call's own ABI method
// rather than by logs (a factory call's topology is its return value and its
// own calldata, not an event stream to scan).
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

// Transform decodes the factory call's own calldata and builds the NewPool
// actions for what it deployed — more than one for a meta-factory (§4.D's
// Curve meta-factory case).
type Transform func(ctx context.Context, snap *store.Snapshot, deployed common.Address, traceIndex int, callData DecodedParams) ([]models.NewPool, error)

// DecodedParams mirrors internal/decoders.DecodedParams; kept as a distinct
// type so this package has no import-cycle dependency on internal/decoders.
type DecodedParams map[string]any

// Spec declares one factory decoder: the ABI method of the call that
// triggers the CREATE (e.g. createPair, createPool, deploy_metapool), and the
// transform body that resolves the deployed pool(s) from it.
type Spec struct {
	Protocol string
	Factory  string
	Method   *abi.Method
	Transform Transform
}

// Decoder adapts a Spec into registry.DiscoveryDecoder.
type Decoder struct {
	spec Spec
}

func New(spec Spec) *Decoder {
	return &Decoder{spec: spec}
}

// Decode implements registry.DiscoveryDecoder.
func (d *Decoder) Decode(ctx context.Context, snap *store.Snapshot, deployed string, traceIndex int, parentCallData []byte) ([]models.NewPool, error) {
	if len(parentCallData) < 4 {
		return nil, fmt.Errorf("discovery: calldata too short for a selector")
	}
	values, err := d.spec.Method.Inputs.Unpack(parentCallData[4:])
	if err != nil {
		return nil, models.NewClassificationError(models.ErrorKindDecode, traceIndex, d.spec.Protocol,
			fmt.Errorf("unpack %s calldata: %w", d.spec.Method.Name, err))
	}

	params := make(DecodedParams, len(values))
	for i, arg := range d.spec.Method.Inputs {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		if i < len(values) {
			params[name] = values[i]
		}
	}

	pools, err := d.spec.Transform(ctx, snap, common.HexToAddress(deployed), traceIndex, params)
	if err != nil {
		if _, ok := err.(*models.ClassificationError); ok {
			return nil, err
		}
		return nil, models.NewClassificationError(models.ErrorKindDecode, traceIndex, d.spec.Protocol, err)
	}
	return pools, nil
}

// ParseABI parses a minimal JSON ABI fragment, panicking on malformed input
// (a decoder manifest bug, never a runtime condition).
func ParseABI(json string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic("discovery: invalid ABI fragment: " + err.Error())
	}
	return parsed
}

func MustMethod(contract abi.ABI, name string) *abi.Method {
	m, ok := contract.Methods[name]
	if !ok {
		panic("discovery: ABI fragment missing method " + name)
	}
	return &m
}

func Selector(m *abi.Method) [4]byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(m.Sig))
	sum := hash.Sum(nil)

	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}

// entry is one registry.DiscoveryEntry builder helper, used by every
// concrete factory file in this package.
func entry(factory string, selector [4]byte, d registry.DiscoveryDecoder) registry.DiscoveryEntry {
	return registry.DiscoveryEntry{Factory: factory, Selector: selector, Decoder: d}
}
