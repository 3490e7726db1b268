package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"sweeper/core/types"
	"sweeper/crypto"
	"sweeper/gateway/middleware"
)

func decodeParam(params []json.RawMessage, idx int, name string, out interface{}) error {
	if idx >= len(params) {
		return invalidParams(name+" parameter required", nil)
	}
	if err := json.Unmarshal(params[idx], out); err != nil {
		return invalidParams("invalid "+name+" parameter", err)
	}
	return nil
}

func addressParam(params []json.RawMessage, idx int, name string) (common.Address, error) {
	var raw string
	if err := decodeParam(params, idx, name, &raw); err != nil {
		return common.Address{}, err
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, invalidParams("invalid "+name+" address", err)
	}
	return addr, nil
}

func (s *Server) sendTransaction(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	if s.auth.Enabled() && !middleware.HasScope(ctx, middleware.ScopeWrite) {
		return nil, errWriteScope
	}
	var tx types.Transaction
	if err := decodeParam(params, 0, "transaction", &tx); err != nil {
		return nil, err
	}
	receipt, err := s.node.SubmitTransaction(&tx)
	if err != nil {
		return nil, err
	}
	return receiptResult(receipt), nil
}

func (s *Server) getForwarderAddress(_ context.Context, params []json.RawMessage) (interface{}, error) {
	factory, err := addressParam(params, 0, "factory")
	if err != nil {
		return nil, err
	}
	var rawSalt string
	if err := decodeParam(params, 1, "salt", &rawSalt); err != nil {
		return nil, err
	}
	salt, err := ParseSalt(rawSalt)
	if err != nil {
		return nil, invalidParams("invalid salt", err)
	}
	addr, err := s.node.ForwarderAddress(factory, salt)
	if err != nil {
		return nil, err
	}
	return addr.Hex(), nil
}

func (s *Server) getFactory(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "factory")
	if err != nil {
		return nil, err
	}
	f, err := s.node.Factory(addr)
	if err != nil {
		return nil, err
	}
	return factoryResult(f), nil
}

func (s *Server) getForwarder(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "forwarder")
	if err != nil {
		return nil, err
	}
	f, err := s.node.Forwarder(addr)
	if err != nil {
		return nil, err
	}
	return forwarderResult(f), nil
}

func (s *Server) getBalance(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		return nil, err
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		return nil, err
	}
	return BalanceResult{Address: addr.Hex(), Balance: balance.String(), Nonce: nonce}, nil
}

func (s *Server) getTokenBalance(_ context.Context, params []json.RawMessage) (interface{}, error) {
	tokenAddr, err := addressParam(params, 0, "token")
	if err != nil {
		return nil, err
	}
	holder, err := addressParam(params, 1, "holder")
	if err != nil {
		return nil, err
	}
	meta, err := s.node.TokenMetadata(tokenAddr)
	if err != nil {
		return nil, err
	}
	balance, err := s.node.TokenBalance(tokenAddr, holder)
	if err != nil {
		return nil, err
	}
	return TokenBalanceResult{
		Token:    tokenAddr.Hex(),
		Holder:   holder.Hex(),
		Balance:  balance.String(),
		Symbol:   meta.Symbol,
		Decimals: meta.Decimals,
	}, nil
}

func (s *Server) getNonce(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := addressParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	return s.node.Nonce(addr)
}

func (s *Server) listForwarders(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	if s.clones == nil {
		return nil, errIndexDisabled
	}
	factory, err := addressParam(params, 0, "factory")
	if err != nil {
		return nil, err
	}
	var destination *common.Address
	if len(params) > 1 && strings.TrimSpace(string(params[1])) != "null" {
		dest, err := addressParam(params, 1, "destination")
		if err != nil {
			return nil, err
		}
		destination = &dest
	}
	records, err := s.clones.List(ctx, factory, destination)
	if err != nil {
		return nil, err
	}
	out := make([]CloneRecordResult, 0, len(records))
	for _, rec := range records {
		out = append(out, cloneRecordResult(rec))
	}
	return out, nil
}
