package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/types"
)

// Client calls a sweeperd JSON-RPC endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	nextID   atomic.Int64
}

// NewClient returns a client for endpoint. token, when set, is sent as a
// bearer credential.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/") + "/",
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Call invokes method with positional params and decodes the result into out.
// JSON-RPC failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		rawParams = append(rawParams, raw)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: c.nextID.Add(1)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	var decoded RPCResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("%s: http %d: %s", method, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (*ReceiptResult, error) {
	var out ReceiptResult
	if err := c.Call(ctx, "sweep_sendTransaction", &out, tx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForwarderAddress(ctx context.Context, factory common.Address, salt *uint256.Int) (common.Address, error) {
	var out string
	if err := c.Call(ctx, "sweep_getForwarderAddress", &out, factory.Hex(), salt.Dec()); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(out), nil
}

func (c *Client) Factory(ctx context.Context, factory common.Address) (*FactoryResult, error) {
	var out FactoryResult
	if err := c.Call(ctx, "sweep_getFactory", &out, factory.Hex()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Forwarder(ctx context.Context, addr common.Address) (*ForwarderResult, error) {
	var out ForwarderResult
	if err := c.Call(ctx, "sweep_getForwarder", &out, addr.Hex()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*BalanceResult, error) {
	var out BalanceResult
	if err := c.Call(ctx, "sweep_getBalance", &out, addr.Hex()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (*TokenBalanceResult, error) {
	var out TokenBalanceResult
	if err := c.Call(ctx, "sweep_getTokenBalance", &out, token.Hex(), holder.Hex()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var out uint64
	if err := c.Call(ctx, "sweep_getNonce", &out, addr.Hex()); err != nil {
		return 0, err
	}
	return out, nil
}

// ListForwarders returns indexed clones of factory, optionally narrowed to
// one destination.
func (c *Client) ListForwarders(ctx context.Context, factory common.Address, destination *common.Address) ([]CloneRecordResult, error) {
	params := []interface{}{factory.Hex()}
	if destination != nil {
		params = append(params, destination.Hex())
	}
	var out []CloneRecordResult
	if err := c.Call(ctx, "sweep_listForwarders", &out, params...); err != nil {
		return nil, err
	}
	return out, nil
}
