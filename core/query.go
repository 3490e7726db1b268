package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/native/forwarder"
	"sweeper/native/token"
)

// ForwarderAddress predicts where factory would place a clone for salt.
func (n *Node) ForwarderAddress(factory common.Address, salt *uint256.Int) (common.Address, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.Forwarders.ForwarderAddress(factory, salt)
}

// Factory returns the owner and parent implementation of a factory.
func (n *Node) Factory(addr common.Address) (*forwarder.Factory, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.Forwarders.Factory(addr)
}

// Forwarder returns the binding of a forwarder instance.
func (n *Node) Forwarder(addr common.Address) (*forwarder.Forwarder, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.Forwarders.Forwarder(addr)
}

// Balance returns the native balance of addr.
func (n *Node) Balance(addr common.Address) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Balance(addr)
}

// TokenBalance returns holder's balance of token.
func (n *Node) TokenBalance(tokenAddr, holder common.Address) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.Tokens.BalanceOf(tokenAddr, holder)
}

// TokenMetadata returns the descriptive fields of a token.
func (n *Node) TokenMetadata(tokenAddr common.Address) (*token.Metadata, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.Tokens.Metadata(tokenAddr)
}

// Nonce returns the next nonce addr must sign with.
func (n *Node) Nonce(addr common.Address) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Nonce(addr)
}

// Close releases the underlying database.
func (n *Node) Close() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.db.Close()
}
