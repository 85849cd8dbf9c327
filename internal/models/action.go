package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/txplain/blocktree/internal/rational"
)

// ActionKind names a concrete Action variant. It exists for fast switching in
// hot loops (the rewriter, the sanitizer) that would otherwise need a type
// switch per node.
type ActionKind string

const (
	ActionKindSwap           ActionKind = "swap"
	ActionKindMint           ActionKind = "mint"
	ActionKindBurn           ActionKind = "burn"
	ActionKindCollect        ActionKind = "collect"
	ActionKindTransfer       ActionKind = "transfer"
	ActionKindFlashLoan      ActionKind = "flash_loan"
	ActionKindLiquidation    ActionKind = "liquidation"
	ActionKindAggregatorSwap ActionKind = "aggregator_swap"
	ActionKindNewPool        ActionKind = "new_pool"
	ActionKindEthTransfer    ActionKind = "eth_transfer"
	ActionKindUnclassified   ActionKind = "unclassified"
)

// Action is the closed sum type every classified tree node holds. New
// protocols never add a variant here — they only add decoders that emit one
// of these shapes. Consumers pattern-match on Kind(), never on protocol.
type Action interface {
	Kind() ActionKind
	Base() *Anchor
}

// Anchor carries the fields every Action variant shares: its position in the
// tx and the protocol that produced it ("" for Unclassified/EthTransfer).
type Anchor struct {
	TraceIndex int
	Protocol   string
}

// Base implements the Action interface's anchor accessor via embedding, so
// every variant gets it for free without naming collisions against the
// embedded field itself.
func (a *Anchor) Base() *Anchor { return a }

// Swap is a single-pool exchange of token_in for token_out.
type Swap struct {
	Anchor
	From       common.Address
	Recipient  common.Address
	Pool       common.Address
	TokenIn    common.Address
	TokenOut   common.Address
	AmountIn   rational.Rational
	AmountOut  rational.Rational
	MsgValue   rational.Rational
}

func (s *Swap) Kind() ActionKind { return ActionKindSwap }

// Mint is liquidity added to a pool, one amount per token in Tokens.
type Mint struct {
	Anchor
	From      common.Address
	Recipient common.Address
	Pool      common.Address
	Tokens    []common.Address
	Amounts   []rational.Rational
}

func (m *Mint) Kind() ActionKind { return ActionKindMint }

// Burn is liquidity removed from a pool, one amount per token in Tokens.
type Burn struct {
	Anchor
	From      common.Address
	Recipient common.Address
	Pool      common.Address
	Tokens    []common.Address
	Amounts   []rational.Rational
}

func (b *Burn) Kind() ActionKind { return ActionKindBurn }

// Collect is fee collection from a concentrated-liquidity position.
type Collect struct {
	Anchor
	Recipient common.Address
	Pool      common.Address
	Tokens    []common.Address
	Amounts   []rational.Rational
}

func (c *Collect) Kind() ActionKind { return ActionKindCollect }

// Transfer is a single ERC-20 transfer, possibly net of an on-transfer fee.
type Transfer struct {
	Anchor
	From   common.Address
	To     common.Address
	Token  common.Address
	Amount rational.Rational
	Fee    rational.Rational // non-zero once the sanitizer reconciles a tax token
}

func (t *Transfer) Kind() ActionKind { return ActionKindTransfer }

// EthTransfer is a plain value-carrying call with no calldata semantics.
type EthTransfer struct {
	Anchor
	From   common.Address
	To     common.Address
	Amount rational.Rational
}

func (e *EthTransfer) Kind() ActionKind { return ActionKindEthTransfer }

// FlashLoan is the net economic effect of a borrow/repay pair, determined
// from child transfers by the multi-frame rewriter (§4.F).
type FlashLoan struct {
	Anchor
	Initiator common.Address
	Pool      common.Address
	Token     common.Address
	Amount    rational.Rational
	Fee       rational.Rational
}

func (f *FlashLoan) Kind() ActionKind { return ActionKindFlashLoan }

// Liquidation is a collateral seizure; LiquidatedCollateral is filled in by
// the rewriter from the descendant transfer whose To == Liquidator.
type Liquidation struct {
	Anchor
	Liquidator           common.Address
	Liquidatee           common.Address
	DebtAsset            common.Address
	CollateralAsset      common.Address
	DebtRepaid           rational.Rational
	LiquidatedCollateral rational.Rational
}

func (l *Liquidation) Kind() ActionKind { return ActionKindLiquidation }

// AggregatorSwap is a multi-hop swap routed through an aggregator contract;
// TokenIn/TokenOut come from the router call's own calldata, and
// AmountIn/AmountOut are filled in by the rewriter from the descendant pool
// swaps, which are then pruned.
type AggregatorSwap struct {
	Anchor
	From      common.Address
	Recipient common.Address
	Router    common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  rational.Rational
	AmountOut rational.Rational
}

func (a *AggregatorSwap) Kind() ActionKind { return ActionKindAggregatorSwap }

// NewPool is emitted by the discovery framework at a CREATE trace whose
// deployed address the factory decoder registered with the metadata store.
type NewPool struct {
	Anchor
	Factory common.Address
	Pool    common.Address
	Tokens  []common.Address
}

func (n *NewPool) Kind() ActionKind { return ActionKindNewPool }

// Unclassified is attached when dispatch finds no matching decoder; it still
// occupies a tree node so trace coverage (§8 invariant 1) holds.
type Unclassified struct {
	Anchor
}

func (u *Unclassified) Kind() ActionKind { return ActionKindUnclassified }

// Predicates used by the rewriter's tree-search builder (§4.F) and the
// sanitizer (§4.G) to locate descendants without a type switch at every call
// site.

func IsSwap(a Action) bool        { return a.Kind() == ActionKindSwap }
func IsTransfer(a Action) bool    { return a.Kind() == ActionKindTransfer }
func IsEthTransfer(a Action) bool { return a.Kind() == ActionKindEthTransfer }
func IsFlashLoan(a Action) bool   { return a.Kind() == ActionKindFlashLoan }
func IsLiquidation(a Action) bool { return a.Kind() == ActionKindLiquidation }
func IsAggregatorSwap(a Action) bool {
	return a.Kind() == ActionKindAggregatorSwap
}
func IsNewPool(a Action) bool      { return a.Kind() == ActionKindNewPool }
func IsUnclassified(a Action) bool { return a.Kind() == ActionKindUnclassified }

// AsTransfer type-asserts a into *Transfer, returning ok=false otherwise.
func AsTransfer(a Action) (*Transfer, bool) {
	t, ok := a.(*Transfer)
	return t, ok
}
