package forwarder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/native/bank"
)

// DeployForwarder places a stand-alone, uninitialized forwarder at addr.
func (e *Engine) DeployForwarder(addr common.Address) error {
	return e.atomic(func() error {
		if err := e.state.PlaceCode(addr, ImplementationCode); err != nil {
			return fmt.Errorf("forwarder: deploy: %w", err)
		}
		return nil
	})
}

// Forwarder returns the view of the forwarder instance at addr.
func (e *Engine) Forwarder(addr common.Address) (*Forwarder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	impl, err := e.resolve(addr)
	if err != nil {
		return nil, err
	}
	rec, err := e.loadRecord(addr)
	if err != nil {
		return nil, err
	}
	return &Forwarder{Address: addr, Implementation: impl, Owner: rec.Owner, Destination: rec.Destination}, nil
}

// Init binds the forwarder at addr to destination and makes caller its owner.
// It succeeds exactly once per instance.
func (e *Engine) Init(caller, addr, destination common.Address) error {
	return e.atomic(func() error { return e.init(caller, addr, destination) })
}

func (e *Engine) init(caller, addr, destination common.Address) error {
	if _, err := e.resolve(addr); err != nil {
		return err
	}
	rec, err := e.loadRecord(addr)
	if err != nil {
		return err
	}
	if rec.Owner != (common.Address{}) || rec.Destination != (common.Address{}) {
		return ErrAlreadyInitialized
	}
	if destination == (common.Address{}) {
		return ErrNullDestinationAddress
	}
	if err := e.state.StoragePut(addr, slotForwarder, &record{Owner: caller, Destination: destination}); err != nil {
		return err
	}
	e.emit(NewInitializedEvent(addr, caller, destination))
	return nil
}

// loadBound resolves addr and checks caller against its recorded owner.
func (e *Engine) loadBound(caller, addr common.Address) (*record, error) {
	if _, err := e.resolve(addr); err != nil {
		return nil, err
	}
	rec, err := e.loadRecord(addr)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, rec.Owner); err != nil {
		return nil, err
	}
	return rec, nil
}

// FlushNative moves the whole native balance of the forwarder at addr to its
// destination and returns the amount moved. Only the owner may flush.
func (e *Engine) FlushNative(caller, addr common.Address) (*big.Int, error) {
	var moved *big.Int
	err := e.atomic(func() error {
		var err error
		moved, err = e.flushNative(caller, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (e *Engine) flushNative(caller, addr common.Address) (*big.Int, error) {
	rec, err := e.loadBound(caller, addr)
	if err != nil {
		return nil, err
	}
	balance, err := e.state.Balance(addr)
	if err != nil {
		return nil, err
	}
	amount, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, fmt.Errorf("forwarder: balance overflow at %s", addr.Hex())
	}
	if err := bank.Transfer(e.state, e.emitter, addr, rec.Destination, amount); err != nil {
		return nil, err
	}
	if balance.Sign() > 0 {
		e.emit(NewFlushedNativeEvent(addr, rec.Destination, balance))
	}
	return balance, nil
}

// FlushToken moves the forwarder's whole balance of token to its destination
// and returns the amount moved. Only the owner may flush.
func (e *Engine) FlushToken(caller, addr, token common.Address) (*big.Int, error) {
	var moved *big.Int
	err := e.atomic(func() error {
		var err error
		moved, err = e.flushToken(caller, addr, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (e *Engine) flushToken(caller, addr, token common.Address) (*big.Int, error) {
	rec, err := e.loadBound(caller, addr)
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	balance, err := e.tokens.BalanceOf(token, addr)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(token, addr, rec.Destination, balance); err != nil {
		return nil, err
	}
	if balance.Sign() > 0 {
		e.emit(NewFlushedTokenEvent(addr, token, rec.Destination, balance))
	}
	return balance, nil
}
