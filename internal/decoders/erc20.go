package decoders

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const erc20ABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

var erc20Contract = parseABI(erc20ABI)

// ERC20Protocol is the dispatch protocol name shared by every ERC-20 token
// contract: the registry keys on (protocol, selector), and every conforming
// token presents the same selector for transfer/transferFrom regardless of
// its own address, so one decoder entry serves all of them.
const ERC20Protocol = "erc20"

// erc20Transform builds a Transfer from a decoded Transfer log, looking up
// the token's decimals to scale the raw amount (spec §4.C point 3: amounts
// always cross a decoder boundary as a Rational, never a raw integer).
func erc20Transform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("erc20: no Transfer log matched")
	}
	fields := logs[0].Fields

	from, _ := fields["from"].(common.Address)
	to, _ := fields["to"].(common.Address)
	value, _ := fields["value"].(*big.Int)

	token := info.To
	tokenInfo, ok, err := snap.TokenInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewClassificationError(models.ErrorKindMissingMetadata, info.TraceIndex, ERC20Protocol,
			fmt.Errorf("no decimals for token %s", token.Hex()))
	}

	amount, err := rational.FromRawAmount(value, tokenInfo.Decimals)
	if err != nil {
		return nil, models.NewClassificationError(models.ErrorKindArithmetic, info.TraceIndex, ERC20Protocol, err)
	}

	return &models.Transfer{
		Anchor: models.Anchor{TraceIndex: info.TraceIndex, Protocol: ERC20Protocol},
		From:   from,
		To:     to,
		Token:  token,
		Amount: amount,
	}, nil
}

var erc20TransferMethod = mustMethod(erc20Contract, "transfer")
var erc20TransferFromMethod = mustMethod(erc20Contract, "transferFrom")
var erc20TransferEvent = mustEvent(erc20Contract, "Transfer")

// TransferEntry registers the plain transfer(to, value) call.
func TransferEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      ERC20Protocol,
		Method:        erc20TransferMethod,
		WantsCallData: false,
		WantsLogs:     true,
		ExpectedLogs:  []LogSpec{{Name: "Transfer", Event: erc20TransferEvent}},
		Transform:     erc20Transform,
	}
	return registry.ActionEntry{Protocol: ERC20Protocol, Selector: selectorOf(erc20TransferMethod), Decoder: New(spec)}
}

// TransferFromEntry registers the delegated transferFrom(from, to, value) call.
func TransferFromEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      ERC20Protocol,
		Method:        erc20TransferFromMethod,
		WantsCallData: false,
		WantsLogs:     true,
		ExpectedLogs:  []LogSpec{{Name: "Transfer", Event: erc20TransferEvent}},
		Transform:     erc20Transform,
	}
	return registry.ActionEntry{Protocol: ERC20Protocol, Selector: selectorOf(erc20TransferFromMethod), Decoder: New(spec)}
}
