package rpc

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"sweeper/core"
	"sweeper/core/types"
	"sweeper/gateway/middleware"
	"sweeper/storage"
	"sweeper/storage/index"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	node   *core.Node
	client *Client
	url    string
}

func newHarness(t *testing.T, cfg ServerConfig, token string) *harness {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB())
	require.NoError(t, err)
	idx, err := index.Open(index.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	node.SetEmitter(idx)

	srv := httptest.NewServer(NewServer(node, idx, cfg, nil).Handler())
	t.Cleanup(srv.Close)
	return &harness{node: node, client: NewClient(srv.URL, token), url: srv.URL}
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return key, ethcrypto.PubkeyToAddress(key.PublicKey)
}

func (h *harness) send(t *testing.T, key *ecdsa.PrivateKey, txType types.TxType, to *common.Address, value *big.Int, payload interface{}) (*ReceiptResult, error) {
	t.Helper()
	ctx := context.Background()
	nonce, err := h.client.Nonce(ctx, ethcrypto.PubkeyToAddress(key.PublicKey))
	require.NoError(t, err)
	tx := &types.Transaction{Type: txType, Nonce: nonce, Value: value}
	if to != nil {
		tx.To = to.Bytes()
	}
	if payload != nil {
		tx.Data, err = types.EncodePayload(payload)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Sign(key))
	return h.client.SendTransaction(ctx, tx)
}

func rpcCode(t *testing.T, err error) int {
	t.Helper()
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr), "expected RPC error, got %v", err)
	return rpcErr.Code
}

func TestForwarderLifecycleOverRPC(t *testing.T) {
	h := newHarness(t, ServerConfig{}, "")
	ctx := context.Background()
	ownerKey, owner := newKey(t)
	strangerKey, stranger := newKey(t)
	destination := common.HexToAddress("0x00000000000000000000000000000000000000d1")

	_, err := h.node.ApplyGenesis([]core.GenesisAlloc{{Address: owner, Balance: big.NewInt(5_000)}})
	require.NoError(t, err)

	receipt, err := h.send(t, ownerKey, types.TxTypeDeployFactory, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.Created)
	factory := common.HexToAddress(receipt.Created)

	info, err := h.client.Factory(ctx, factory)
	require.NoError(t, err)
	require.Equal(t, owner.Hex(), info.Owner)

	salt := uint256.NewInt(42)
	predicted, err := h.client.ForwarderAddress(ctx, factory, salt)
	require.NoError(t, err)

	receipt, err = h.send(t, ownerKey, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Destination: destination, Salt: salt.Bytes32()})
	require.NoError(t, err)
	require.Equal(t, predicted.Hex(), receipt.Created)
	require.Equal(t, "clone_forwarder", receipt.Type)

	fwd, err := h.client.Forwarder(ctx, predicted)
	require.NoError(t, err)
	require.True(t, fwd.Initialized)
	require.True(t, fwd.Clone)
	require.Equal(t, factory.Hex(), fwd.Owner)
	require.Equal(t, destination.Hex(), fwd.DestinationAddress)
	require.Equal(t, info.ParentForwarder, fwd.Implementation)

	_, err = h.send(t, ownerKey, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Destination: destination, Salt: salt.Bytes32()})
	require.Equal(t, codeSaltCollision, rpcCode(t, err))

	_, err = h.send(t, strangerKey, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Destination: destination, Salt: uint256.NewInt(7).Bytes32()})
	require.Equal(t, codeUnauthorizedCall, rpcCode(t, err))
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, map[string]interface{}{"caller": stranger.Hex()}, rpcErr.Data)

	_, err = h.send(t, ownerKey, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Salt: uint256.NewInt(8).Bytes32()})
	require.Equal(t, codeNullDestination, rpcCode(t, err))

	_, err = h.send(t, ownerKey, types.TxTypeInitForwarder, &predicted, nil, types.InitPayload{Destination: destination})
	require.Equal(t, codeAlreadyInitialized, rpcCode(t, err))

	_, err = h.send(t, ownerKey, types.TxTypeTransfer, &predicted, big.NewInt(1_200), nil)
	require.NoError(t, err)
	_, err = h.send(t, ownerKey, types.TxTypeFactoryFlushNative, &factory, nil, types.FactoryFlushPayload{Forwarder: predicted})
	require.NoError(t, err)

	bal, err := h.client.Balance(ctx, destination)
	require.NoError(t, err)
	require.Equal(t, "1200", bal.Balance)
	bal, err = h.client.Balance(ctx, predicted)
	require.NoError(t, err)
	require.Equal(t, "0", bal.Balance)

	records, err := h.client.ListForwarders(ctx, factory, &destination)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, predicted.Hex(), records[0].Address)
	require.Equal(t, "42", records[0].Salt)
}

func TestTokenSweepOverRPC(t *testing.T) {
	h := newHarness(t, ServerConfig{}, "")
	ctx := context.Background()
	ownerKey, _ := newKey(t)
	depositorKey, depositor := newKey(t)
	destination := common.HexToAddress("0x00000000000000000000000000000000000000d2")

	receipt, err := h.send(t, depositorKey, types.TxTypeDeployToken, nil, nil, types.DeployTokenPayload{Name: "Test", Symbol: "tst", Decimals: 6, Supply: big.NewInt(1_000)})
	require.NoError(t, err)
	tokenAddr := common.HexToAddress(receipt.Created)

	receipt, err = h.send(t, ownerKey, types.TxTypeDeployFactory, nil, nil, nil)
	require.NoError(t, err)
	factory := common.HexToAddress(receipt.Created)
	receipt, err = h.send(t, ownerKey, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Destination: destination, Salt: uint256.NewInt(1).Bytes32()})
	require.NoError(t, err)
	clone := common.HexToAddress(receipt.Created)

	_, err = h.send(t, depositorKey, types.TxTypeTokenTransfer, &tokenAddr, nil, types.TokenTransferPayload{Recipient: clone, Amount: big.NewInt(10)})
	require.NoError(t, err)
	receipt, err = h.send(t, ownerKey, types.TxTypeFactoryFlushToken, &factory, nil, types.FactoryFlushPayload{Forwarder: clone, Token: tokenAddr})
	require.NoError(t, err)
	require.NotEmpty(t, receipt.Events)

	held, err := h.client.TokenBalance(ctx, tokenAddr, destination)
	require.NoError(t, err)
	require.Equal(t, "10", held.Balance)
	require.Equal(t, "TST", held.Symbol)
	left, err := h.client.TokenBalance(ctx, tokenAddr, depositor)
	require.NoError(t, err)
	require.Equal(t, "990", left.Balance)
}

func TestQueryErrors(t *testing.T) {
	h := newHarness(t, ServerConfig{}, "")
	ctx := context.Background()
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := h.client.Factory(ctx, unknown)
	require.Equal(t, codeNotFound, rpcCode(t, err))
	_, err = h.client.Forwarder(ctx, unknown)
	require.Equal(t, codeNotFound, rpcCode(t, err))

	err = h.client.Call(ctx, "sweep_getBalance", nil, "not-an-address")
	require.Equal(t, codeInvalidParams, rpcCode(t, err))
	err = h.client.Call(ctx, "sweep_getForwarderAddress", nil, unknown.Hex(), "0xzz")
	require.Equal(t, codeInvalidParams, rpcCode(t, err))
	err = h.client.Call(ctx, "sweep_unknown", nil)
	require.Equal(t, codeMethodNotFound, rpcCode(t, err))
}

func TestMalformedRequests(t *testing.T) {
	h := newHarness(t, ServerConfig{}, "")
	for name, body := range map[string]string{
		"empty":   "",
		"garbage": "{not json",
		"version": `{"jsonrpc":"1.0","method":"sweep_getNonce","id":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(h.url+"/", "application/json", bytes.NewBufferString(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var decoded RPCResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
			require.NotNil(t, decoded.Error)
		})
	}
}

func TestSendTransactionRequiresWriteScope(t *testing.T) {
	cfg := ServerConfig{Auth: middleware.AuthConfig{Enabled: true, HMACSecret: testSecret}}
	readOnly := newHarness(t, cfg, "")
	ownerKey, owner := newKey(t)

	nonce, err := readOnly.client.Nonce(context.Background(), owner)
	require.NoError(t, err)
	require.Zero(t, nonce)

	_, err = readOnly.send(t, ownerKey, types.TxTypeDeployFactory, nil, nil, nil)
	require.Equal(t, codeUnauthorized, rpcCode(t, err))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": middleware.ScopeWrite,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	writer := NewClient(readOnly.url, token)
	tx := &types.Transaction{Type: types.TxTypeDeployFactory}
	require.NoError(t, tx.Sign(ownerKey))
	receipt, err := writer.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, owner.Hex(), receipt.Sender)
}

func TestParseSalt(t *testing.T) {
	cases := map[string]uint64{"0": 0, "42": 42, "0x2a": 42, "0x0": 0, " 7 ": 7}
	for raw, want := range cases {
		salt, err := ParseSalt(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, salt.Uint64(), raw)
	}
	word := "0x" + common.Bytes2Hex(bytes.Repeat([]byte{0xff}, 32))
	salt, err := ParseSalt(word)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).SetAllOne(), salt)

	for _, raw := range []string{"", "-1", "0x" + common.Bytes2Hex(make([]byte, 33)), "abc"} {
		_, err := ParseSalt(raw)
		require.Error(t, err, raw)
	}
}
