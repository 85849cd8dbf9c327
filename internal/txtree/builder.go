// Package txtree implements the TxTree Builder of spec §4.E: a single
// pre-order walk of a transaction's call frames that dispatches each one
// through the registry, attaches the resulting Action (or Unclassified) to
// a TransactionTree node, and runs discovery at CREATE frames.
package txtree

import (
	"context"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

// Builder walks one transaction's traces into a TransactionTree.
type Builder struct {
	reg *registry.Registry
}

// New returns a Builder dispatching through reg.
func New(reg *registry.Registry) *Builder {
	return &Builder{reg: reg}
}

type stackEntry struct {
	depth int
	index models.NodeIndex
}

// Build runs the pre-order walk (§4.E): traces must already be ordered
// depth-first as debug_traceTransaction's callTracer emits them.
func (b *Builder) Build(ctx context.Context, snap *store.Snapshot, txHash string, txIndex uint, traces []models.Trace) (*models.TransactionTree, error) {
	tree := models.NewTransactionTree(txHash, txIndex)
	var stack []stackEntry

	for i := range traces {
		trace := &traces[i]

		var parent models.NodeIndex = -1
		for len(stack) > 0 && stack[len(stack)-1].depth >= trace.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent = stack[len(stack)-1].index
		}

		node := trace.TraceIndex
		tree.AddNode(node, parent, nil)
		stack = append(stack, stackEntry{depth: trace.Depth, index: node})

		action, err := b.dispatch(ctx, snap, trace, traces, parent)
		if err != nil {
			if ce, ok := err.(*models.ClassificationError); ok && ce.Kind.IsFatal() {
				return nil, err
			}
			action = &models.Unclassified{Anchor: models.Anchor{TraceIndex: trace.TraceIndex}}
		}
		if action == nil {
			action = b.fallback(trace)
		}
		tree.SetAction(node, action)
	}

	return tree, nil
}

// dispatch resolves and runs the decoder for one trace: discovery for CREATE
// frames, the action registry for everything else.
func (b *Builder) dispatch(ctx context.Context, snap *store.Snapshot, trace *models.Trace, all []models.Trace, parent models.NodeIndex) (models.Action, error) {
	if trace.CallType.IsCreate() {
		return b.dispatchCreate(ctx, snap, trace, all, parent)
	}
	return b.dispatchCall(ctx, snap, trace)
}

func (b *Builder) dispatchCall(ctx context.Context, snap *store.Snapshot, trace *models.Trace) (models.Action, error) {
	protocolInfo, ok, err := snap.LookupProtocol(ctx, trace.To)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // not a registered protocol: NotRecognized, falls to fallback()
	}

	decoder, ok := b.reg.LookupAction(protocolInfo.Protocol, trace.Selector())
	if !ok {
		return nil, nil
	}

	info := models.CallInfo{
		TraceIndex: trace.TraceIndex,
		From:       trace.From,
		To:         trace.To,
		Value:      trace.Value,
		CallData:   trace.Input,
		Logs:       trace.Logs,
		ReturnData: trace.Output,
	}
	return decoder.Decode(ctx, snap, info, trace)
}

// dispatchCreate resolves the factory decoder keyed by the PARENT call's
// contract and selector (the call that issued the CREATE), not the CREATE
// frame itself — a CREATE trace carries no calldata/selector of its own.
func (b *Builder) dispatchCreate(ctx context.Context, snap *store.Snapshot, trace *models.Trace, all []models.Trace, parent models.NodeIndex) (models.Action, error) {
	if parent < 0 {
		return nil, nil
	}
	parentTrace := findTrace(all, parent)
	if parentTrace == nil {
		return nil, nil
	}

	decoder, ok := b.reg.LookupDiscovery(parentTrace.To.Hex(), parentTrace.Selector())
	if !ok {
		return nil, nil
	}

	pools, err := decoder.Decode(ctx, snap, trace.To.Hex(), trace.TraceIndex, parentTrace.Input)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		if p.Pool == trace.To {
			pool := p
			return &pool, nil
		}
	}
	if len(pools) > 0 {
		pool := pools[0]
		return &pool, nil
	}
	return nil, nil
}

// findTrace locates the Trace whose TraceIndex matches a NodeIndex (they are
// the same integer space — NodeIndex is defined as the trace's own index).
func findTrace(all []models.Trace, index models.NodeIndex) *models.Trace {
	for i := range all {
		if all[i].TraceIndex == index {
			return &all[i]
		}
	}
	return nil
}

// fallback handles a dispatch miss (§4.E step 4): a value-carrying call with
// no matching decoder becomes an EthTransfer, everything else Unclassified.
func (b *Builder) fallback(trace *models.Trace) models.Action {
	anchor := models.Anchor{TraceIndex: trace.TraceIndex}
	if trace.Value != nil && trace.Value.Sign() > 0 {
		amount, err := rational.FromRawAmount(trace.Value, 18)
		if err != nil {
			return &models.Unclassified{Anchor: anchor}
		}
		return &models.EthTransfer{
			Anchor: anchor,
			From:   trace.From,
			To:     trace.To,
			Amount: amount,
		}
	}
	return &models.Unclassified{Anchor: anchor}
}
