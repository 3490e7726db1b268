package forwarder

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/events"
	"sweeper/core/types"
)

type engineState interface {
	PlaceCode(addr common.Address, code []byte) error
	Code(addr common.Address) ([]byte, error)
	StoragePut(contract common.Address, slot string, value interface{}) error
	StorageGet(contract common.Address, slot string, out interface{}) (bool, error)
	Balance(addr common.Address) (*big.Int, error)
	AddBalance(addr common.Address, amount *uint256.Int) error
	SubBalance(addr common.Address, amount *uint256.Int) error
	NextCreateAddress(deployer common.Address) (common.Address, error)
	Snapshot() int
	RevertToSnapshot(id int)
}

// TokenLedger is the fungible-token collaborator swept by FlushToken.
type TokenLedger interface {
	BalanceOf(token, holder common.Address) (*big.Int, error)
	Transfer(token, from, to common.Address, amount *big.Int) error
}

type forwarderEvent struct {
	evt *types.Event
}

func (e forwarderEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e forwarderEvent) Event() *types.Event { return e.evt }

// Engine runs forwarder and factory logic against ledger state. Every exported
// mutation is all-or-nothing: a failure reverts the state touched by the call
// and drops the events it raised.
//
// Engine is not safe for concurrent use; the node applies one transaction at
// a time.
type Engine struct {
	state   engineState
	tokens  TokenLedger
	emitter events.Emitter
}

// NewEngine creates a forwarder engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the token collaborator used by token sweeps.
func (e *Engine) SetTokenLedger(tokens TokenLedger) { e.tokens = tokens }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(forwarderEvent{evt: event})
}

// atomic runs fn against a state snapshot with events held back until fn
// succeeds.
func (e *Engine) atomic(fn func() error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	snapshot := e.state.Snapshot()
	outer := e.emitter
	pending := &events.Buffer{}
	e.emitter = pending
	err := fn()
	e.emitter = outer
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	pending.Flush(outer)
	return nil
}

// resolve returns the implementation whose logic runs at addr, following a
// minimal proxy one hop.
func (e *Engine) resolve(addr common.Address) (common.Address, error) {
	code, err := e.state.Code(addr)
	if err != nil {
		return common.Address{}, err
	}
	if bytes.Equal(code, ImplementationCode) {
		return addr, nil
	}
	if impl, ok := ParseCloneRuntime(code); ok {
		implCode, err := e.state.Code(impl)
		if err != nil {
			return common.Address{}, err
		}
		if bytes.Equal(implCode, ImplementationCode) {
			return impl, nil
		}
	}
	return common.Address{}, fmt.Errorf("%w: %s", ErrForwarderNotFound, addr.Hex())
}

func (e *Engine) loadRecord(addr common.Address) (*record, error) {
	rec := new(record)
	if _, err := e.state.StorageGet(addr, slotForwarder, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) loadFactory(addr common.Address) (*Factory, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	code, err := e.state.Code(addr)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(code, FactoryCode) {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, addr.Hex())
	}
	rec := new(factoryRecord)
	ok, err := e.state.StorageGet(addr, slotFactory, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, addr.Hex())
	}
	return &Factory{Address: addr, Owner: rec.Owner, Parent: rec.Parent}, nil
}

// authorize admits caller only when it equals owner. An absent owner admits
// nobody.
func authorize(caller, owner common.Address) error {
	if owner == (common.Address{}) || caller != owner {
		return &UnauthorizedCallerError{Caller: caller}
	}
	return nil
}
