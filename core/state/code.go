package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	codePrefix    = []byte("code:")
	storagePrefix = []byte("storage:")
)

func codeKey(hash []byte) []byte {
	return hashedKey(codePrefix, hash)
}

func storageKey(contract common.Address, slot string) []byte {
	return hashedKey(storagePrefix, contract.Bytes(), []byte(slot))
}

// PlaceCode installs code at addr. This is the ledger's deployment primitive:
// it refuses any address that already carries code or has sent a transaction
// (non-zero nonce), returning ErrCodeCollision. A balance held by the address
// is preserved, so funds sent to a predicted address before deployment are not
// lost. Contract accounts start at nonce 1.
func (m *Manager) PlaceCode(addr common.Address, code []byte) error {
	if len(code) == 0 {
		return fmt.Errorf("state: empty code")
	}
	stateAcc, err := m.stateAccountOrEmpty(addr)
	if err != nil {
		return err
	}
	if stateAcc.Nonce != 0 || !bytes.Equal(stateAcc.CodeHash, gethtypes.EmptyCodeHash.Bytes()) {
		return fmt.Errorf("%w: %s", ErrCodeCollision, addr.Hex())
	}
	hash := ethcrypto.Keccak256(code)
	m.put(codeKey(hash), code)
	stateAcc.CodeHash = hash
	stateAcc.Nonce = 1
	return m.writeStateAccount(addr, stateAcc)
}

// Code returns the code placed at addr, or nil for accounts without code.
func (m *Manager) Code(addr common.Address) ([]byte, error) {
	stateAcc, err := m.loadStateAccount(addr)
	if err != nil {
		return nil, err
	}
	if stateAcc == nil || len(stateAcc.CodeHash) == 0 || bytes.Equal(stateAcc.CodeHash, gethtypes.EmptyCodeHash.Bytes()) {
		return nil, nil
	}
	code, err := m.get(codeKey(stateAcc.CodeHash))
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("state: code %x missing for %s", stateAcc.CodeHash, addr.Hex())
	}
	return common.CopyBytes(code), nil
}

// HasCode reports whether addr carries code.
func (m *Manager) HasCode(addr common.Address) (bool, error) {
	code, err := m.Code(addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// StoragePut writes an RLP-encoded value into a named slot of a contract's
// storage.
func (m *Manager) StoragePut(contract common.Address, slot string, value interface{}) error {
	if slot == "" {
		return fmt.Errorf("state: storage slot must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(storageKey(contract, slot), encoded)
	return nil
}

// StorageGet decodes the value held in a contract storage slot into out. The
// boolean reports whether the slot was ever written.
func (m *Manager) StorageGet(contract common.Address, slot string, out interface{}) (bool, error) {
	if slot == "" {
		return false, fmt.Errorf("state: storage slot must not be empty")
	}
	data, err := m.get(storageKey(contract, slot))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode slot %s of %s: %w", slot, contract.Hex(), err)
	}
	return true, nil
}

// NextCreateAddress returns the CREATE address derived from the deployer's
// current nonce, keccak256(rlp(deployer, nonce))[12:], and bumps the nonce.
// Contracts use it to deploy other contracts.
func (m *Manager) NextCreateAddress(deployer common.Address) (common.Address, error) {
	nonce, err := m.IncrementNonce(deployer)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.CreateAddress(deployer, nonce), nil
}
