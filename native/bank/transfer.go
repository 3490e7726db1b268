package bank

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/events"
)

// State is the slice of the ledger the native transfer primitive touches.
type State interface {
	AddBalance(addr common.Address, amount *uint256.Int) error
	SubBalance(addr common.Address, amount *uint256.Int) error
}

// Transfer moves amount of native currency from one account to another and
// emits a transfer event. A zero amount succeeds without touching state.
func Transfer(st State, emitter events.Emitter, from, to common.Address, amount *uint256.Int) error {
	if st == nil {
		return fmt.Errorf("bank: state not configured")
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := st.SubBalance(from, amount); err != nil {
		return fmt.Errorf("bank: debit %s: %w", from.Hex(), err)
	}
	if err := st.AddBalance(to, amount); err != nil {
		return fmt.Errorf("bank: credit %s: %w", to.Hex(), err)
	}
	if emitter != nil {
		emitter.Emit(events.Transfer{From: from, To: to, Amount: amount.ToBig()})
	}
	return nil
}
