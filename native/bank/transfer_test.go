package bank

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/events"
	"sweeper/core/state"
	"sweeper/storage"
)

func TestTransferMovesBalanceAndEmits(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	if err := st.AddBalance(from, uint256.NewInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var buf events.Buffer
	if err := Transfer(st, &buf, from, to, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	fromBal, _ := st.Balance(from)
	toBal, _ := st.Balance(to)
	if fromBal.Int64() != 60 || toBal.Int64() != 40 {
		t.Fatalf("unexpected balances from=%s to=%s", fromBal, toBal)
	}
	if buf.Len() != 1 || buf.Events()[0].EventType() != events.TypeTransfer {
		t.Fatalf("expected one transfer event, got %d", buf.Len())
	}
}

func TestTransferZeroIsNoop(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	var buf events.Buffer
	if err := Transfer(st, &buf, common.HexToAddress("0x01"), common.HexToAddress("0x02"), new(uint256.Int)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	if buf.Len() != 0 || st.Pending() != 0 {
		t.Fatalf("zero transfer must not touch state or emit")
	}
}

func TestTransferInsufficient(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	err := Transfer(st, nil, common.HexToAddress("0x01"), common.HexToAddress("0x02"), uint256.NewInt(1))
	if !errors.Is(err, state.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}
