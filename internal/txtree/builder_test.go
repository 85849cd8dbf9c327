package txtree

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

var (
	factory    = common.HexToAddress("0xfactory")
	deployedA  = common.HexToAddress("0xpoolA")
	deployedB  = common.HexToAddress("0xpoolB")
	tokenX     = common.HexToAddress("0xtokenx")
	tokenY     = common.HexToAddress("0xtokeny")
	createSel  = [4]byte{0x11, 0x22, 0x33, 0x44}
)

// stubDiscovery always returns the pools fixed at construction, ignoring the
// parent calldata it's handed — enough to exercise dispatchCreate's own
// routing logic without a live Snapshot.
type stubDiscovery struct {
	pools []models.NewPool
	err   error
}

func (s stubDiscovery) Decode(ctx context.Context, snap *store.Snapshot, deployed string, traceIndex int, parentCallData []byte) ([]models.NewPool, error) {
	return s.pools, s.err
}

func newBuilderWithDiscovery(d registry.DiscoveryDecoder) *Builder {
	reg := registry.NewRegistry(nil, []registry.DiscoveryEntry{
		{Factory: factory.Hex(), Selector: createSel, Decoder: d},
	})
	return New(reg)
}

func TestDispatchCreateKeysOnParentCallNotTheCreateFrame(t *testing.T) {
	b := newBuilderWithDiscovery(stubDiscovery{pools: []models.NewPool{
		{Anchor: models.Anchor{TraceIndex: 1}, Factory: factory, Pool: deployedA, Tokens: []common.Address{tokenX, tokenY}},
	}})

	parentTrace := models.Trace{TraceIndex: 0, CallType: models.CallTypeCall, To: factory, Input: append(append([]byte{}, createSel[:]...), make([]byte, 32)...)}
	createTrace := models.Trace{TraceIndex: 1, CallType: models.CallTypeCreate2, To: deployedA}
	all := []models.Trace{parentTrace, createTrace}

	action, err := b.dispatchCreate(context.Background(), nil, &createTrace, all, 0)
	require.NoError(t, err)
	pool, ok := action.(*models.NewPool)
	require.True(t, ok)
	assert.Equal(t, deployedA, pool.Pool)
}

func TestDispatchCreatePicksTheExactDeployedAddressAmongMultiplePools(t *testing.T) {
	b := newBuilderWithDiscovery(stubDiscovery{pools: []models.NewPool{
		{Anchor: models.Anchor{TraceIndex: 1}, Factory: factory, Pool: deployedA, Tokens: []common.Address{tokenX, tokenY}},
		{Anchor: models.Anchor{TraceIndex: 1}, Factory: factory, Pool: deployedB, Tokens: []common.Address{tokenX, tokenY}},
	}})

	parentTrace := models.Trace{TraceIndex: 0, CallType: models.CallTypeCall, To: factory, Input: append(append([]byte{}, createSel[:]...), make([]byte, 32)...)}
	createTrace := models.Trace{TraceIndex: 1, CallType: models.CallTypeCreate, To: deployedB}
	all := []models.Trace{parentTrace, createTrace}

	action, err := b.dispatchCreate(context.Background(), nil, &createTrace, all, 0)
	require.NoError(t, err)
	pool := action.(*models.NewPool)
	assert.Equal(t, deployedB, pool.Pool, "exact match among a meta-factory's multiple pools wins")
}

func TestDispatchCreateFallsBackToFirstPoolWhenDeployedAddressUnknown(t *testing.T) {
	b := newBuilderWithDiscovery(stubDiscovery{pools: []models.NewPool{
		{Anchor: models.Anchor{TraceIndex: 1}, Factory: factory, Pool: deployedA},
	}})

	parentTrace := models.Trace{TraceIndex: 0, CallType: models.CallTypeCall, To: factory, Input: append(append([]byte{}, createSel[:]...), make([]byte, 32)...)}
	createTrace := models.Trace{TraceIndex: 1, CallType: models.CallTypeCreate, To: common.HexToAddress("0xunresolved")}
	all := []models.Trace{parentTrace, createTrace}

	action, err := b.dispatchCreate(context.Background(), nil, &createTrace, all, 0)
	require.NoError(t, err)
	pool := action.(*models.NewPool)
	assert.Equal(t, deployedA, pool.Pool)
}

func TestDispatchCreateNoDiscoveryMatchReturnsNilAction(t *testing.T) {
	b := newBuilderWithDiscovery(stubDiscovery{pools: nil})

	parentTrace := models.Trace{TraceIndex: 0, CallType: models.CallTypeCall, To: common.HexToAddress("0xnotafactory")}
	createTrace := models.Trace{TraceIndex: 1, CallType: models.CallTypeCreate, To: deployedA}
	all := []models.Trace{parentTrace, createTrace}

	action, err := b.dispatchCreate(context.Background(), nil, &createTrace, all, 0)
	require.NoError(t, err)
	assert.Nil(t, action, "no registered factory for the parent's address/selector")
}

func TestDispatchCreateWithNoParentReturnsNilAction(t *testing.T) {
	b := newBuilderWithDiscovery(stubDiscovery{})
	createTrace := models.Trace{TraceIndex: 0, CallType: models.CallTypeCreate, To: deployedA}

	action, err := b.dispatchCreate(context.Background(), nil, &createTrace, []models.Trace{createTrace}, -1)
	require.NoError(t, err)
	assert.Nil(t, action)
}

func TestFallbackValueCarryingCallBecomesEthTransfer(t *testing.T) {
	b := New(registry.NewRegistry(nil, nil))
	trace := &models.Trace{TraceIndex: 4, From: common.HexToAddress("0xa"), To: common.HexToAddress("0xb"), Value: big.NewInt(5_000_000_000_000_000_000)}

	action := b.fallback(trace)
	eth, ok := action.(*models.EthTransfer)
	require.True(t, ok)
	assert.Equal(t, trace.From, eth.From)
	assert.Equal(t, trace.To, eth.To)
}

func TestFallbackZeroValueBecomesUnclassified(t *testing.T) {
	b := New(registry.NewRegistry(nil, nil))
	trace := &models.Trace{TraceIndex: 4, Value: big.NewInt(0)}

	action := b.fallback(trace)
	assert.Equal(t, models.ActionKindUnclassified, action.Kind())
}

func TestFallbackNilValueBecomesUnclassified(t *testing.T) {
	b := New(registry.NewRegistry(nil, nil))
	trace := &models.Trace{TraceIndex: 4, Value: nil}

	action := b.fallback(trace)
	assert.Equal(t, models.ActionKindUnclassified, action.Kind())
}

func TestFindTraceLocatesByTraceIndex(t *testing.T) {
	all := []models.Trace{{TraceIndex: 0}, {TraceIndex: 1}, {TraceIndex: 2}}
	assert.Same(t, &all[1], findTrace(all, 1))
	assert.Nil(t, findTrace(all, 99))
}
