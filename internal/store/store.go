// Package store implements the metadata store named in spec §3/§6: a
// read-mostly, copy-on-write-snapshotted table of ProtocolInfo/TokenInfo rows
// that the action dispatcher reads and the discovery pipeline writes.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"

	"github.com/txplain/blocktree/internal/models"
)

// Store is the process-wide metadata store. One Store serves every block a
// process classifies; per-transaction isolation is provided by Snapshot, not
// by constructing a new Store.
type Store struct {
	cache *layeredCache
	pg    *postgresTable
	rs    *redsync.Redsync

	mu sync.Mutex
	// pending buffers each transaction's own discovery delta separately
	// (keyed by tx index within the block), so a pool RegisterPool'd by tx
	// A is never visible to tx B's dispatch before CommitBlock runs (spec
	// §5: only same-tx, later-trace visibility is allowed within a block).
	pending map[uint]map[string]protocolRow
}

// Config gathers the connection strings the ambient stack needs; loaded by
// internal/config from .env via godotenv.
type Config struct {
	RedisAddr   string
	PostgresDSN string
}

// New dials redis and postgres and returns a ready Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	redisClient := goredislib.NewClient(&goredislib.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}

	cache, err := newLayeredCache(redisClient)
	if err != nil {
		return nil, err
	}

	pg, err := newPostgresTable(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	pool := goredis.NewPool(redisClient)
	rs := redsync.New(pool)

	return &Store{
		cache:   cache,
		pg:      pg,
		rs:      rs,
		pending: make(map[uint]map[string]protocolRow),
	}, nil
}

// Close releases the postgres pool. Redis/ristretto need no explicit close.
func (s *Store) Close() {
	s.pg.close()
}

// LookupProtocol implements the metadata store's read contract (spec §6):
// L1 -> L2 -> postgres, populating the caches on the way back up.
func (s *Store) LookupProtocol(ctx context.Context, address common.Address) (*models.ProtocolInfo, bool, error) {
	addr := address.Hex()
	key := fmt.Sprintf(protocolKeyPattern, addr)

	var row protocolRow
	hit, err := s.cache.getJSON(ctx, key, &row)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		pgRow, err := s.pg.lookupProtocol(ctx, addr)
		if err != nil {
			if err == ErrRowNotFound {
				return nil, false, nil
			}
			return nil, false, err
		}
		row = *pgRow
		if err := s.cache.setJSON(ctx, key, row, protocolTTL); err != nil {
			return nil, false, err
		}
	}

	return &models.ProtocolInfo{
		Address:   common.HexToAddress(row.Address),
		Protocol:  row.Protocol,
		Token0:    common.HexToAddress(row.Token0),
		Token1:    common.HexToAddress(row.Token1),
		InitBlock: row.InitBlock,
	}, true, nil
}

// TokenInfo implements the metadata store's token read contract.
func (s *Store) TokenInfo(ctx context.Context, address common.Address) (*models.TokenInfo, bool, error) {
	addr := address.Hex()
	key := fmt.Sprintf(tokenKeyPattern, addr)

	var row tokenRow
	hit, err := s.cache.getJSON(ctx, key, &row)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		pgRow, err := s.pg.tokenInfo(ctx, addr)
		if err != nil {
			if err == ErrRowNotFound {
				return nil, false, nil
			}
			return nil, false, err
		}
		row = *pgRow
		if err := s.cache.setJSON(ctx, key, row, tokenTTL); err != nil {
			return nil, false, err
		}
	}

	return &models.TokenInfo{
		Address:  common.HexToAddress(row.Address),
		Symbol:   row.Symbol,
		Decimals: row.Decimals,
	}, true, nil
}

// RegisterPool buffers a discovery write into the given transaction's own
// pending delta (spec §4.D/§5: visible in-process to later traces of the
// *same* tx immediately, committed to the durable store at end-of-block, and
// never visible to any other transaction in the block before that commit).
// Conflicting data for an already-pending (within the same tx) or
// already-committed address is returned as an ErrorKindConflict
// ClassificationError (trace index 0: the store does not know the trace).
func (s *Store) RegisterPool(ctx context.Context, txIndex uint, address common.Address, protocol string, tokens []common.Address, initBlock uint64) error {
	row := protocolRow{Address: address.Hex(), Protocol: protocol, InitBlock: initBlock}
	if len(tokens) > 0 {
		row.Token0 = tokens[0].Hex()
	}
	if len(tokens) > 1 {
		row.Token1 = tokens[1].Hex()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txPending := s.pending[txIndex]
	if existing, ok := txPending[row.Address]; ok {
		if existing != row {
			return models.NewClassificationError(models.ErrorKindConflict, 0, protocol,
				fmt.Errorf("store: conflicting discovery for %s in same transaction", row.Address))
		}
		return nil
	}

	if existing, err := s.pg.lookupProtocol(ctx, row.Address); err == nil {
		if *existing != row {
			return models.NewClassificationError(models.ErrorKindConflict, 0, protocol,
				fmt.Errorf("store: conflicting discovery for %s against committed row", row.Address))
		}
		return nil // idempotent no-op
	} else if err != ErrRowNotFound {
		return err
	}

	if txPending == nil {
		txPending = make(map[string]protocolRow)
		s.pending[txIndex] = txPending
	}
	txPending[row.Address] = row
	return nil
}

// PendingDiscoveries exposes the given transaction's own in-flight buffer for
// intra-tx reads: the action dispatcher checks this before falling through to
// LookupProtocol, so a pool discovered earlier in a transaction classifies
// successfully later in that same transaction (spec §4.D). Other
// transactions' pending discoveries are never returned, preserving the
// cross-transaction isolation rule in spec §5.
func (s *Store) PendingDiscoveries(txIndex uint) map[string]models.ProtocolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	txPending := s.pending[txIndex]
	out := make(map[string]models.ProtocolInfo, len(txPending))
	for addr, row := range txPending {
		out[addr] = models.ProtocolInfo{
			Address:   common.HexToAddress(row.Address),
			Protocol:  row.Protocol,
			Token0:    common.HexToAddress(row.Token0),
			Token1:    common.HexToAddress(row.Token1),
			InitBlock: row.InitBlock,
		}
	}
	return out
}

// CommitBlock flushes every transaction's pending discovery delta to
// postgres and invalidates the affected cache keys, making discoveries
// visible to subsequent blocks (spec §5's discovery-monotonicity guarantee,
// tested as §8 invariant 5). A distributed lock via redsync ensures only one
// worker in a multi-process deployment performs the commit for a given
// block. Transactions are flushed in index order, so a genuine conflict
// between two transactions discovering the same address differently in the
// same block is still caught here (by upsertProtocol's existing-row check)
// even though neither transaction could see the other's pending write.
func (s *Store) CommitBlock(ctx context.Context, blockNumber uint64) error {
	mutex := s.rs.NewMutex(fmt.Sprintf("discovery-commit:%d", blockNumber))
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("store: acquire commit lock for block %d: %w", blockNumber, err)
	}
	defer mutex.UnlockContext(ctx)

	s.mu.Lock()
	byTx := s.pending
	s.pending = make(map[uint]map[string]protocolRow)
	s.mu.Unlock()

	txIndexes := make([]uint, 0, len(byTx))
	for txIndex := range byTx {
		txIndexes = append(txIndexes, txIndex)
	}
	sort.Slice(txIndexes, func(i, j int) bool { return txIndexes[i] < txIndexes[j] })

	for _, txIndex := range txIndexes {
		for addr, row := range byTx[txIndex] {
			conflict, err := s.pg.upsertProtocol(ctx, row)
			if err != nil {
				return fmt.Errorf("store: commit discovery for %s: %w", addr, err)
			}
			if conflict {
				return fmt.Errorf("store: %w: conflicting discovery for %s", ErrConflict, addr)
			}
			s.cache.invalidate(ctx, fmt.Sprintf(protocolKeyPattern, addr))
		}
	}
	return nil
}

// ErrConflict marks a commit-time Conflict (§7: Fatal for the block).
var ErrConflict = fmt.Errorf("discovery conflict")

// UpsertToken records a token's symbol/decimals, used by the manual-mapping
// config loader (spec §6) and by any decoder that observes token metadata
// it can opportunistically persist.
func (s *Store) UpsertToken(ctx context.Context, address common.Address, symbol string, decimals uint8) error {
	row := tokenRow{Address: address.Hex(), Symbol: symbol, Decimals: decimals}
	if err := s.pg.upsertToken(ctx, row); err != nil {
		return err
	}
	s.cache.invalidate(ctx, fmt.Sprintf(tokenKeyPattern, row.Address))
	return nil
}
