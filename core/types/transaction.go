package types

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer TxType = 0x01 // Native currency transfer, also used to fund forwarders

	TxTypeDeployFactory      TxType = 0x10 // Deploy a forwarder factory owned by the sender
	TxTypeCloneForwarder     TxType = 0x11 // Factory owner clones a bound forwarder
	TxTypeFactoryFlushNative TxType = 0x12 // Factory owner sweeps native balance of a clone
	TxTypeFactoryFlushToken  TxType = 0x13 // Factory owner sweeps token balance of a clone

	TxTypeDeployForwarder      TxType = 0x20 // Deploy a stand-alone, uninitialised forwarder
	TxTypeInitForwarder        TxType = 0x21 // Bind a forwarder to a destination
	TxTypeForwarderFlushNative TxType = 0x22 // Forwarder owner sweeps native balance
	TxTypeForwarderFlushToken  TxType = 0x23 // Forwarder owner sweeps token balance

	TxTypeDeployToken   TxType = 0x30 // Deploy a fungible token minting the supply to the sender
	TxTypeTokenTransfer TxType = 0x31 // Transfer fungible tokens
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:             "transfer",
	TxTypeDeployFactory:        "deploy_factory",
	TxTypeCloneForwarder:       "clone_forwarder",
	TxTypeFactoryFlushNative:   "factory_flush_native",
	TxTypeFactoryFlushToken:    "factory_flush_token",
	TxTypeDeployForwarder:      "deploy_forwarder",
	TxTypeInitForwarder:        "init_forwarder",
	TxTypeForwarderFlushNative: "forwarder_flush_native",
	TxTypeForwarderFlushToken:  "forwarder_flush_token",
	TxTypeDeployToken:          "deploy_token",
	TxTypeTokenTransfer:        "token_transfer",
}

// String returns the snake_case name used in logs and metric labels.
func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the type is one the state transition understands.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

var (
	ErrMissingSignature = errors.New("types: transaction not signed")
	ErrInvalidSignature = errors.New("types: invalid transaction signature")
)

// Transaction is a signed request to mutate the ledger. The recovered signer
// is the caller identity every native module authorises against.
type Transaction struct {
	Type  TxType   `json:"type"`
	Nonce uint64   `json:"nonce"`
	To    []byte   `json:"to,omitempty"`
	Value *big.Int `json:"value,omitempty"`
	Data  []byte   `json:"data,omitempty"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type signingPayload struct {
	Type  TxType
	Nonce uint64
	To    []byte
	Value *big.Int
	Data  []byte
}

// Hash returns keccak256(rlp(type, nonce, to, value, data)).
func (tx *Transaction) Hash() (common.Hash, error) {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	encoded, err := rlp.EncodeToBytes(&signingPayload{
		Type:  tx.Type,
		Nonce: tx.Nonce,
		To:    tx.To,
		Value: value,
		Data:  tx.Data,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash.Bytes(), privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address. The result is cached on the transaction.
func (tx *Transaction) From() (common.Address, error) {
	if tx.from != nil {
		return common.BytesToAddress(tx.from), nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return common.Address{}, ErrMissingSignature
	}
	if tx.V.Uint64() < 27 || tx.V.Uint64() > 28 || len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 {
		return common.Address{}, ErrInvalidSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return common.Address{}, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, errors.Join(ErrInvalidSignature, err)
	}
	addr := crypto.PubkeyToAddress(*pubKey)
	tx.from = addr.Bytes()
	return addr, nil
}

// ToAddress returns the recipient as an address; the zero address when unset.
func (tx *Transaction) ToAddress() common.Address {
	return common.BytesToAddress(tx.To)
}
