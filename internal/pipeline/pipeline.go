// Package pipeline implements the block-level orchestration of spec §5:
// inter-transaction parallelism via a bounded worker pool, strictly
// sequential intra-tx classification (Builder -> Rewriter -> Sanitizer), and
// end-of-block discovery commit.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/txplain/blocktree/internal/chainrpc"
	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/rewrite"
	"github.com/txplain/blocktree/internal/sanitize"
	"github.com/txplain/blocktree/internal/store"
	"github.com/txplain/blocktree/internal/txtree"
)

// Pipeline wires a trace source, the metadata store, and the dispatch
// registry into the per-block classification run.
type Pipeline struct {
	Source  chainrpc.TraceSource
	Store   *store.Store
	Reg     *registry.Registry
	Workers int
	Log     zerolog.Logger

	rewriteReg rewrite.Registry
}

// New returns a ready Pipeline. workers <= 0 falls back to a single worker
// (still correct, just not parallel — useful for deterministic tests).
func New(source chainrpc.TraceSource, st *store.Store, reg *registry.Registry, workers int, log zerolog.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		Source:     source,
		Store:      st,
		Reg:        reg,
		Workers:    workers,
		Log:        log,
		rewriteReg: rewrite.Classifiers(),
	}
}

// ClassifyBlock runs the full block pipeline: fetch traces, fan out one
// worker per transaction (bounded by Workers), run each tx's Builder ->
// Rewriter -> Sanitizer sequence, then commit discovered pools so the next
// block sees them (§5's discovery-monotonicity guarantee).
func (p *Pipeline) ClassifyBlock(ctx context.Context, blockNumber uint64) (*models.BlockTree, *models.BlockMetrics, error) {
	traces, err := p.Source.BlockTraces(ctx, blockNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: fetch block %d: %w", blockNumber, err)
	}

	builder := txtree.New(p.Reg)

	trees := make([]*models.TransactionTree, len(traces.Traces))
	metrics := &models.BlockMetrics{BlockNumber: blockNumber, Transactions: len(traces.Traces)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i, txTrace := range traces.Traces {
		i, txTrace := i, txTrace
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					p.Log.Error().Str("tx", txTrace.TxHash).Interface("panic", r).Msg("tx classification panicked, leaving tx unclassified")
					trees[i] = models.NewTransactionTree(txTrace.TxHash, uint(i))
					err = nil
				}
			}()

			if gctx.Err() != nil {
				return gctx.Err()
			}

			decoded, convErr := decodeRawFrames(txTrace)
			if convErr != nil {
				p.Log.Warn().Err(convErr).Str("tx", txTrace.TxHash).Msg("failed to decode trace frames, leaving tx unclassified")
				trees[i] = models.NewTransactionTree(txTrace.TxHash, uint(i))
				return nil
			}

			snap := p.Store.NewSnapshot(blockNumber, uint(i))
			tree, buildErr := builder.Build(gctx, snap, txTrace.TxHash, uint(i), decoded)
			if buildErr != nil {
				return fmt.Errorf("tx %s: %w", txTrace.TxHash, buildErr)
			}

			incomplete := rewrite.Run(tree, p.rewriteReg)
			for range incomplete {
				metrics.IncompleteRewrites++
			}
			metrics.RewritesApplied += len(decoded) - tree.Len()

			preSanitize := tree.Len()
			sanitize.Run(tree)
			metrics.SanitizerCollapses += preSanitize - tree.Len()

			trees[i] = tree
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, tree := range trees {
		metrics.DiscoveryWrites += len(p.Store.PendingDiscoveries(uint(i)))
		if tree == nil {
			continue
		}
		metrics.TotalTraces += countActions(tree, nil)
		metrics.Unclassified += countActions(tree, models.IsUnclassified)
	}

	if err := p.Store.CommitBlock(ctx, blockNumber); err != nil {
		return nil, nil, fmt.Errorf("pipeline: commit block %d: %w", blockNumber, err)
	}

	header := models.BlockHeader{
		Number:     traces.BlockNumber,
		Hash:       common.HexToHash(traces.BlockHash),
		ParentHash: common.HexToHash(traces.ParentHash),
		Timestamp:  traces.Timestamp,
	}

	return &models.BlockTree{Header: header, Transactions: trees}, metrics, nil
}

func countActions(tree *models.TransactionTree, pred func(models.Action) bool) int {
	n := 0
	for _, a := range tree.Actions() {
		if pred == nil || pred(a) {
			n++
		}
	}
	return n
}
