package types

import "math/big"

// Account is the high-level view of a ledger account. Externally owned
// accounts carry the empty code hash; contract accounts (factories,
// forwarders, tokens) carry the hash of their placed code.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Balance  *big.Int `json:"balance"`
	CodeHash []byte   `json:"codeHash"`
}
