package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
)

// Snapshot is the versioned, read-only view of the metadata store handed to
// a single transaction's worker (§5/§9). It layers that transaction's own
// in-flight discovery buffer over the durable store, so a pool discovered
// earlier in the transaction classifies successfully later in that same
// transaction, without exposing it to any other transaction in the block
// (spec §5's isolation rule: tx N may not rely on tx N+1 creating a pool it
// uses, and tx N+1 may not see tx N's discoveries either, until the whole
// block commits). Each transaction gets its own Snapshot.
type Snapshot struct {
	store       *Store
	blockNumber uint64
	txIndex     uint
}

// NewSnapshot publishes the current state of store as of blockNumber, scoped
// to the transaction at txIndex within that block.
func (s *Store) NewSnapshot(blockNumber uint64, txIndex uint) *Snapshot {
	return &Snapshot{store: s, blockNumber: blockNumber, txIndex: txIndex}
}

// LookupProtocol checks this transaction's own pending discovery buffer
// before falling through to the durable store.
func (sn *Snapshot) LookupProtocol(ctx context.Context, address common.Address) (*models.ProtocolInfo, bool, error) {
	pending := sn.store.PendingDiscoveries(sn.txIndex)
	if info, ok := pending[address.Hex()]; ok {
		return &info, true, nil
	}
	return sn.store.LookupProtocol(ctx, address)
}

// TokenInfo delegates to the durable store; token rows are never part of the
// per-transaction discovery buffer.
func (sn *Snapshot) TokenInfo(ctx context.Context, address common.Address) (*models.TokenInfo, bool, error) {
	return sn.store.TokenInfo(ctx, address)
}

// RegisterPool buffers a discovery write for this transaction only.
func (sn *Snapshot) RegisterPool(ctx context.Context, address common.Address, protocol string, tokens []common.Address, initBlock uint64) error {
	return sn.store.RegisterPool(ctx, sn.txIndex, address, protocol, tokens, initBlock)
}

// BlockNumber returns the block this snapshot was published for.
func (sn *Snapshot) BlockNumber() uint64 { return sn.blockNumber }

// TxIndex returns the transaction index this snapshot is scoped to.
func (sn *Snapshot) TxIndex() uint { return sn.txIndex }
