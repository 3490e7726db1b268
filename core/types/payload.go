package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidPayload reports a Data field that does not decode into the payload
// its transaction type expects.
var ErrInvalidPayload = errors.New("types: invalid payload")

// ClonePayload carries the arguments of TxTypeCloneForwarder. The salt is the
// big-endian 32-byte word fed to the deterministic placement scheme.
type ClonePayload struct {
	Destination common.Address
	Salt        [32]byte
}

// FactoryFlushPayload names the clone to sweep and, for token sweeps, the
// token contract.
type FactoryFlushPayload struct {
	Forwarder common.Address
	Token     common.Address
}

// InitPayload carries the destination bound by TxTypeInitForwarder.
type InitPayload struct {
	Destination common.Address
}

// TokenFlushPayload names the token swept by TxTypeForwarderFlushToken.
type TokenFlushPayload struct {
	Token common.Address
}

// DeployTokenPayload describes a fungible token whose whole supply is minted to
// the deployer.
type DeployTokenPayload struct {
	Name     string
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}

// TokenTransferPayload moves Amount of the token addressed by the transaction's
// To field.
type TokenTransferPayload struct {
	Recipient common.Address
	Amount    *big.Int
}

// EncodePayload rlp-encodes a payload for the Data field.
func EncodePayload(payload interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(payload)
}

// DecodePayload decodes the Data field into out.
func DecodePayload(data []byte, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
