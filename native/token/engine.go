package token

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/text/unicode/norm"

	"sweeper/core/events"
	"sweeper/core/types"
)

// RuntimeCode is placed at every fungible token contract address.
var RuntimeCode = []byte("sweeper.native.token/v1")

var (
	errNilState = errors.New("token engine: state not configured")

	ErrTokenNotFound       = errors.New("token: no token contract at address")
	ErrInsufficientBalance = errors.New("token: transfer amount exceeds balance")
	ErrInvalidRecipient    = errors.New("token: transfer to the zero address")
	ErrInvalidAmount       = errors.New("token: amount must not be negative")
)

const (
	slotMetadata      = "token.meta"
	slotBalancePrefix = "token.balance:"

	EventTypeTokenDeployed = "token.deployed"
)

type engineState interface {
	PlaceCode(addr common.Address, code []byte) error
	Code(addr common.Address) ([]byte, error)
	StoragePut(contract common.Address, slot string, value interface{}) error
	StorageGet(contract common.Address, slot string, out interface{}) (bool, error)
}

// Metadata describes a deployed token.
type Metadata struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

// Engine implements the fungible token ledger the forwarders sweep from.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine creates a token engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func balanceSlot(holder common.Address) string {
	return slotBalancePrefix + holder.Hex()
}

// Deploy places a token at addr and mints the whole supply to creator.
func (e *Engine) Deploy(addr, creator common.Address, meta Metadata) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	// Canonical composition keeps visually identical names byte-identical.
	name := norm.NFC.String(strings.TrimSpace(meta.Name))
	symbol := strings.ToUpper(norm.NFKC.String(strings.TrimSpace(meta.Symbol)))
	if name == "" || symbol == "" {
		return fmt.Errorf("token: name and symbol required")
	}
	supply := new(big.Int)
	if meta.TotalSupply != nil {
		supply.Set(meta.TotalSupply)
	}
	if supply.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := e.state.PlaceCode(addr, RuntimeCode); err != nil {
		return fmt.Errorf("token: deploy: %w", err)
	}
	stored := Metadata{Name: name, Symbol: symbol, Decimals: meta.Decimals, TotalSupply: supply}
	if err := e.state.StoragePut(addr, slotMetadata, &stored); err != nil {
		return err
	}
	if err := e.state.StoragePut(addr, balanceSlot(creator), supply); err != nil {
		return err
	}
	e.emit(tokenEvent{evt: &types.Event{Type: EventTypeTokenDeployed, Attributes: map[string]string{
		"token":    addr.Hex(),
		"creator":  creator.Hex(),
		"name":     name,
		"symbol":   symbol,
		"decimals": fmt.Sprintf("%d", meta.Decimals),
		"supply":   supply.String(),
	}}})
	e.emit(events.Transfer{Token: addr, To: creator, Amount: new(big.Int).Set(supply)})
	return nil
}

func (e *Engine) ensureToken(token common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	code, err := e.state.Code(token)
	if err != nil {
		return err
	}
	if !bytes.Equal(code, RuntimeCode) {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, token.Hex())
	}
	return nil
}

func (e *Engine) balance(token, holder common.Address) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := e.state.StorageGet(token, balanceSlot(holder), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Metadata returns the descriptive fields of a token.
func (e *Engine) Metadata(token common.Address) (*Metadata, error) {
	if err := e.ensureToken(token); err != nil {
		return nil, err
	}
	meta := new(Metadata)
	if _, err := e.state.StorageGet(token, slotMetadata, meta); err != nil {
		return nil, err
	}
	if meta.TotalSupply == nil {
		meta.TotalSupply = new(big.Int)
	}
	return meta, nil
}

// BalanceOf returns holder's balance of token.
func (e *Engine) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if err := e.ensureToken(token); err != nil {
		return nil, err
	}
	return e.balance(token, holder)
}

// Transfer moves amount of token from the calling account to recipient. A
// zero amount is accepted and still emits the transfer event, matching the
// usual fungible-token contract behaviour.
func (e *Engine) Transfer(token, from, to common.Address, amount *big.Int) error {
	if err := e.ensureToken(token); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	amt := new(big.Int)
	if amount != nil {
		amt.Set(amount)
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBal, err := e.balance(token, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal, amt)
	}
	if from != to {
		toBal, err := e.balance(token, to)
		if err != nil {
			return err
		}
		if err := e.state.StoragePut(token, balanceSlot(from), new(big.Int).Sub(fromBal, amt)); err != nil {
			return err
		}
		if err := e.state.StoragePut(token, balanceSlot(to), new(big.Int).Add(toBal, amt)); err != nil {
			return err
		}
	}
	e.emit(events.Transfer{Token: token, From: from, To: to, Amount: amt})
	return nil
}
