package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"sweeper/core/types"
	"sweeper/native/forwarder"
	"sweeper/storage/index"
)

// ReceiptResult summarises a committed transaction.
type ReceiptResult struct {
	TxHash  string        `json:"txHash"`
	Type    string        `json:"type"`
	Sender  string        `json:"sender"`
	Created string        `json:"created,omitempty"`
	Events  []types.Event `json:"events"`
}

type FactoryResult struct {
	Address         string `json:"address"`
	Owner           string `json:"owner"`
	ParentForwarder string `json:"parentForwarder"`
}

type ForwarderResult struct {
	Address            string `json:"address"`
	Implementation     string `json:"implementation"`
	Owner              string `json:"owner"`
	DestinationAddress string `json:"destinationAddress"`
	Initialized        bool   `json:"initialized"`
	Clone              bool   `json:"clone"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type TokenBalanceResult struct {
	Token    string `json:"token"`
	Holder   string `json:"holder"`
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type CloneRecordResult struct {
	Factory     string `json:"factory"`
	Address     string `json:"address"`
	Destination string `json:"destination"`
	Salt        string `json:"salt"`
	IndexedAt   int64  `json:"indexedAt"`
}

func receiptResult(r *types.Receipt) ReceiptResult {
	out := ReceiptResult{
		TxHash: r.TxHash.Hex(),
		Type:   r.Type.String(),
		Sender: r.Sender.Hex(),
		Events: r.Events,
	}
	if r.Created != nil {
		out.Created = r.Created.Hex()
	}
	if out.Events == nil {
		out.Events = []types.Event{}
	}
	return out
}

func factoryResult(f *forwarder.Factory) FactoryResult {
	return FactoryResult{Address: f.Address.Hex(), Owner: f.Owner.Hex(), ParentForwarder: f.Parent.Hex()}
}

func forwarderResult(f *forwarder.Forwarder) ForwarderResult {
	return ForwarderResult{
		Address:            f.Address.Hex(),
		Implementation:     f.Implementation.Hex(),
		Owner:              f.Owner.Hex(),
		DestinationAddress: f.Destination.Hex(),
		Initialized:        f.Initialized(),
		Clone:              f.IsClone(),
	}
}

func cloneRecordResult(rec index.Record) CloneRecordResult {
	return CloneRecordResult{
		Factory:     rec.Factory.Hex(),
		Address:     rec.Address.Hex(),
		Destination: rec.Destination.Hex(),
		Salt:        rec.Salt,
		IndexedAt:   rec.IndexedAt.Unix(),
	}
}

// ParseSalt accepts a base-10 integer or a 0x-prefixed big-endian hex word.
func ParseSalt(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("salt required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		digits := trimmed[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		buf, err := hex.DecodeString(digits)
		if err != nil || len(buf) > 32 {
			return nil, fmt.Errorf("salt %q is not a 32-byte hex word", raw)
		}
		return new(uint256.Int).SetBytes(buf), nil
	}
	salt, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("salt %q: %w", raw, err)
	}
	return salt, nil
}
