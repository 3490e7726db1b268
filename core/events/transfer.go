package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"sweeper/core/types"
)

const (
	// TypeTransfer is emitted for every balance movement, native or token.
	TypeTransfer = "transfer"

	// AssetNative labels native currency movements.
	AssetNative = "native"
)

// Transfer records a balance movement. Token is the zero address for native
// currency.
type Transfer struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"asset":  AssetNative,
		"from":   e.From.Hex(),
		"to":     e.To.Hex(),
		"amount": formatAmount(e.Amount),
	}
	if e.Token != (common.Address{}) {
		attrs["asset"] = e.Token.Hex()
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
