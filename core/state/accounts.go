package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"sweeper/core/types"
)

var accountPrefix = []byte("account:")

func accountStateKey(addr common.Address) []byte {
	return hashedKey(accountPrefix, addr.Bytes())
}

func (m *Manager) loadStateAccount(addr common.Address) (*gethtypes.StateAccount, error) {
	data, err := m.get(accountStateKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	stateAcc := new(gethtypes.StateAccount)
	if err := rlp.DecodeBytes(data, stateAcc); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", addr.Hex(), err)
	}
	return stateAcc, nil
}

func (m *Manager) writeStateAccount(addr common.Address, stateAcc *gethtypes.StateAccount) error {
	encoded, err := rlp.EncodeToBytes(stateAcc)
	if err != nil {
		return err
	}
	m.put(accountStateKey(addr), encoded)
	return nil
}

func emptyStateAccount() *gethtypes.StateAccount {
	return &gethtypes.StateAccount{
		Balance:  new(uint256.Int),
		Root:     gethtypes.EmptyRootHash,
		CodeHash: gethtypes.EmptyCodeHash.Bytes(),
	}
}

func (m *Manager) stateAccountOrEmpty(addr common.Address) (*gethtypes.StateAccount, error) {
	acc, err := m.loadStateAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return emptyStateAccount(), nil
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	if len(acc.CodeHash) == 0 {
		acc.CodeHash = gethtypes.EmptyCodeHash.Bytes()
	}
	return acc, nil
}

// GetAccount returns the account stored under addr. Unknown addresses yield a
// zero-valued externally owned account.
func (m *Manager) GetAccount(addr common.Address) (*types.Account, error) {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return nil, err
	}
	return &types.Account{
		Nonce:    stateAcc.Nonce,
		Balance:  stateAcc.Balance.ToBig(),
		CodeHash: common.CopyBytes(stateAcc.CodeHash),
	}, nil
}

// PutAccount persists the provided account state under the supplied address.
func (m *Manager) PutAccount(addr common.Address, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stateAcc := emptyStateAccount()
	stateAcc.Nonce = account.Nonce
	if account.Balance != nil {
		if account.Balance.Sign() < 0 {
			return fmt.Errorf("state: negative balance not allowed")
		}
		balance, overflow := uint256.FromBig(account.Balance)
		if overflow {
			return fmt.Errorf("state: balance overflow")
		}
		stateAcc.Balance = balance
	}
	if len(account.CodeHash) > 0 {
		stateAcc.CodeHash = common.CopyBytes(account.CodeHash)
	}
	return m.writeStateAccount(addr, stateAcc)
}

// Balance returns the native balance of addr.
func (m *Manager) Balance(addr common.Address) (*big.Int, error) {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return nil, err
	}
	return stateAcc.Balance.ToBig(), nil
}

// AddBalance credits amount to addr.
func (m *Manager) AddBalance(addr common.Address, amount *uint256.Int) error {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(stateAcc.Balance, amount)
	if overflow {
		return fmt.Errorf("state: balance overflow for %s", addr.Hex())
	}
	stateAcc.Balance = sum
	return m.writeStateAccount(addr, stateAcc)
}

// SubBalance debits amount from addr, failing with ErrInsufficientBalance when
// the account cannot cover it.
func (m *Manager) SubBalance(addr common.Address, amount *uint256.Int) error {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return err
	}
	if stateAcc.Balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, addr.Hex(), stateAcc.Balance.Dec(), amount.Dec())
	}
	stateAcc.Balance = new(uint256.Int).Sub(stateAcc.Balance, amount)
	return m.writeStateAccount(addr, stateAcc)
}

// Nonce returns the current nonce of addr.
func (m *Manager) Nonce(addr common.Address) (uint64, error) {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return 0, err
	}
	return stateAcc.Nonce, nil
}

// IncrementNonce bumps the nonce of addr and returns the value it held before.
func (m *Manager) IncrementNonce(addr common.Address) (uint64, error) {
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return 0, err
	}
	prev := stateAcc.Nonce
	stateAcc.Nonce++
	if err := m.writeStateAccount(addr, stateAcc); err != nil {
		return 0, err
	}
	return prev, nil
}
