package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var genesisAppliedKey = []byte("genesis/applied")

// GenesisAlloc credits an initial native balance.
type GenesisAlloc struct {
	Address common.Address
	Balance *big.Int
}

// ApplyGenesis credits allocs once per database. Later calls are no-ops and
// report false.
func (n *Node) ApplyGenesis(allocs []GenesisAlloc) (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	applied, err := n.state.KVGet(genesisAppliedKey, nil)
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}
	for _, alloc := range allocs {
		if alloc.Balance == nil || alloc.Balance.Sign() < 0 {
			n.state.Discard()
			return false, fmt.Errorf("core: genesis balance for %s must be non-negative", alloc.Address.Hex())
		}
		amount, overflow := uint256.FromBig(alloc.Balance)
		if overflow {
			n.state.Discard()
			return false, fmt.Errorf("core: genesis balance for %s overflows", alloc.Address.Hex())
		}
		if err := n.state.AddBalance(alloc.Address, amount); err != nil {
			n.state.Discard()
			return false, err
		}
	}
	if err := n.state.KVPut(genesisAppliedKey, uint64(len(allocs))); err != nil {
		n.state.Discard()
		return false, err
	}
	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		return false, err
	}
	return true, nil
}
