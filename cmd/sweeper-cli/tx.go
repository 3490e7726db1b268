package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"sweeper/core/types"
	"sweeper/crypto"
	"sweeper/rpc"
)

func client(c *cli.Context) *rpc.Client {
	return rpc.NewClient(c.String("rpc"), c.String("auth-token"))
}

// output prints v as JSON under --json and calls text otherwise.
func output(c *cli.Context, v interface{}, text func()) error {
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func addressFlag(c *cli.Context, name string) (common.Address, error) {
	raw := strings.TrimSpace(c.String(name))
	if raw == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func amountFlag(c *cli.Context, name string) (*big.Int, error) {
	raw := strings.TrimSpace(c.String(name))
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("--%s must be a non-negative integer, got %q", name, raw)
	}
	return amount, nil
}

// submit signs a transaction of txType with the keystore key, using the
// sender's current nonce, and prints the receipt.
func submit(c *cli.Context, txType types.TxType, to *common.Address, value *big.Int, payload interface{}) (*rpc.ReceiptResult, error) {
	key, err := loadKey(c)
	if err != nil {
		return nil, err
	}
	rpcClient := client(c)
	nonce, err := rpcClient.Nonce(c.Context, key.PubKey().Address())
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{Type: txType, Nonce: nonce, Value: value}
	if to != nil {
		tx.To = to.Bytes()
	}
	if payload != nil {
		data, err := types.EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		tx.Data = data
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, err
	}
	receipt, err := rpcClient.SendTransaction(c.Context, tx)
	if err != nil {
		return nil, err
	}
	err = output(c, receipt, func() {
		fmt.Fprintf(c.App.Writer, "Transaction %s applied (%s)\n", receipt.TxHash, receipt.Type)
		if receipt.Created != "" {
			fmt.Fprintf(c.App.Writer, "Created: %s\n", receipt.Created)
		}
		for _, evt := range receipt.Events {
			fmt.Fprintf(c.App.Writer, "  %s %s\n", evt.Type, formatAttributes(evt.Attributes))
		}
	})
	return receipt, err
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}
