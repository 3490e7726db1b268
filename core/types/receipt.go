package types

import "github.com/ethereum/go-ethereum/common"

// Receipt summarises the committed effects of one applied transaction.
type Receipt struct {
	TxHash common.Hash    `json:"txHash"`
	Type   TxType         `json:"type"`
	Sender common.Address `json:"sender"`
	// Created is set for transactions that place new code (factory,
	// forwarder, token or clone deployments).
	Created *common.Address `json:"created,omitempty"`
	Events  []Event         `json:"events"`
}
