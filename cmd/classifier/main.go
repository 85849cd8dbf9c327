// Command classifier runs the Block Tree classification pipeline over a
// range of blocks, wiring the decoder/discovery registries, the metadata
// store, and the trace source together the way the teacher's cmd/main.go
// wires its agent and API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/txplain/blocktree/internal/chainrpc"
	"github.com/txplain/blocktree/internal/config"
	"github.com/txplain/blocktree/internal/decoders"
	"github.com/txplain/blocktree/internal/discovery"
	"github.com/txplain/blocktree/internal/httpapi"
	"github.com/txplain/blocktree/internal/pipeline"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

func main() {
	var (
		fromBlock = flag.Uint64("from", 0, "first block to classify")
		toBlock   = flag.Uint64("to", 0, "last block to classify (0 means only -from)")
		serve     = flag.Bool("serve", false, "start the HTTP API instead of running a fixed range")
		addr      = flag.String("addr", ":8080", "HTTP listen address when -serve is set")
		verbose   = flag.Bool("verbose", false, "debug-level logging")
	)
	flag.Parse()

	logger := log.With().Str("component", "classifier").Logger()
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if err := run(*fromBlock, *toBlock, *serve, *addr, logger); err != nil {
		logger.Fatal().Err(err).Msg("classifier exited with error")
	}
}

func run(fromBlock, toBlock uint64, serve bool, addr string, logger zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()

	if err := config.ApplyManualMappings(ctx, st, cfg.Mappings); err != nil {
		return fmt.Errorf("apply manual mappings: %w", err)
	}

	reg := registry.NewRegistry(decoders.ActionEntries(), discovery.Entries(cfg.Factories))

	source, err := chainrpc.NewErpcSource(ctx, cfg.ErpcURL, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("dial trace source: %w", err)
	}

	p := pipeline.New(source, st, reg, cfg.Workers, logger)

	if serve {
		logger.Info().Str("addr", addr).Msg("starting HTTP API")
		server := httpapi.NewServer(addr, p, logger)
		return server.Start(ctx)
	}

	if toBlock == 0 {
		toBlock = fromBlock
	}
	for block := fromBlock; block <= toBlock; block++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tree, metrics, err := p.ClassifyBlock(ctx, block)
		if err != nil {
			return fmt.Errorf("classify block %d: %w", block, err)
		}
		logger.Info().
			Uint64("block", block).
			Int("transactions", len(tree.Transactions)).
			Str("total_traces", humanize.Comma(int64(metrics.TotalTraces))).
			Int("unclassified", metrics.Unclassified).
			Int("rewrites_applied", metrics.RewritesApplied).
			Int("incomplete_rewrites", metrics.IncompleteRewrites).
			Int("sanitizer_collapses", metrics.SanitizerCollapses).
			Msg("block classified")
	}
	return nil
}
