package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"sweeper/core/events"
	"sweeper/core/state"
	"sweeper/core/types"
	"sweeper/native/bank"
	"sweeper/native/forwarder"
	"sweeper/native/token"
)

var (
	ErrNilTransaction  = errors.New("core: nil transaction")
	ErrUnknownTxType   = errors.New("core: unknown transaction type")
	ErrNonceMismatch   = errors.New("core: nonce mismatch")
	ErrMissingTarget   = errors.New("core: transaction requires a target address")
	ErrValueNotAllowed = errors.New("core: transaction type does not accept value")
	ErrInvalidValue    = errors.New("core: invalid transfer value")
)

// StateProcessor executes transactions against pending ledger state. It does
// not commit; the node decides whether the pending writes and buffered events
// survive.
type StateProcessor struct {
	State      *state.Manager
	Forwarders *forwarder.Engine
	Tokens     *token.Engine
	pending    *events.Buffer
}

// NewStateProcessor wires the native engines to manager. Every engine emits
// into one buffer that the node releases after commit.
func NewStateProcessor(manager *state.Manager) *StateProcessor {
	pending := &events.Buffer{}

	tokens := token.NewEngine()
	tokens.SetState(manager)
	tokens.SetEmitter(pending)

	forwarders := forwarder.NewEngine()
	forwarders.SetState(manager)
	forwarders.SetTokenLedger(tokens)
	forwarders.SetEmitter(pending)

	return &StateProcessor{
		State:      manager,
		Forwarders: forwarders,
		Tokens:     tokens,
		pending:    pending,
	}
}

// PendingEvents returns the events raised since the last Reset.
func (sp *StateProcessor) PendingEvents() *events.Buffer { return sp.pending }

// Reset drops pending state writes and buffered events.
func (sp *StateProcessor) Reset() {
	sp.State.Discard()
	sp.pending.Reset()
}

// ApplyTransaction validates tx and executes it. The sender's nonce must
// match; it is bumped before execution so contract creations derive their
// address from the nonce the transaction carried.
func (sp *StateProcessor) ApplyTransaction(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTxType, byte(tx.Type))
	}
	sender, err := tx.From()
	if err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	current, err := sp.State.Nonce(sender)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != current {
		return nil, fmt.Errorf("%w: %s sent %d, expected %d", ErrNonceMismatch, sender.Hex(), tx.Nonce, current)
	}
	if _, err := sp.State.IncrementNonce(sender); err != nil {
		return nil, err
	}
	if tx.Type != types.TxTypeTransfer && tx.Value != nil && tx.Value.Sign() != 0 {
		return nil, fmt.Errorf("%w: %s", ErrValueNotAllowed, tx.Type)
	}

	created, err := sp.dispatch(sender, tx)
	if err != nil {
		return nil, err
	}
	receipt := &types.Receipt{TxHash: hash, Type: tx.Type, Sender: sender, Created: created}
	for _, evt := range sp.pending.Events() {
		if payload := events.Canonical(evt); payload != nil {
			receipt.Events = append(receipt.Events, *payload)
		}
	}
	return receipt, nil
}

func (sp *StateProcessor) dispatch(sender common.Address, tx *types.Transaction) (*common.Address, error) {
	switch tx.Type {
	case types.TxTypeTransfer:
		return nil, sp.applyTransfer(sender, tx)
	case types.TxTypeDeployFactory:
		addr := ethcrypto.CreateAddress(sender, tx.Nonce)
		if _, err := sp.Forwarders.DeployFactory(sender, addr); err != nil {
			return nil, err
		}
		return &addr, nil
	case types.TxTypeCloneForwarder:
		return sp.applyClone(sender, tx)
	case types.TxTypeFactoryFlushNative, types.TxTypeFactoryFlushToken:
		return nil, sp.applyFactoryFlush(sender, tx)
	case types.TxTypeDeployForwarder:
		addr := ethcrypto.CreateAddress(sender, tx.Nonce)
		if err := sp.Forwarders.DeployForwarder(addr); err != nil {
			return nil, err
		}
		return &addr, nil
	case types.TxTypeInitForwarder:
		return nil, sp.applyInit(sender, tx)
	case types.TxTypeForwarderFlushNative:
		target, err := requireTarget(tx)
		if err != nil {
			return nil, err
		}
		_, err = sp.Forwarders.FlushNative(sender, target)
		return nil, err
	case types.TxTypeForwarderFlushToken:
		return nil, sp.applyFlushToken(sender, tx)
	case types.TxTypeDeployToken:
		return sp.applyDeployToken(sender, tx)
	case types.TxTypeTokenTransfer:
		return nil, sp.applyTokenTransfer(sender, tx)
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTxType, byte(tx.Type))
}

func requireTarget(tx *types.Transaction) (common.Address, error) {
	if len(tx.To) == 0 {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingTarget, tx.Type)
	}
	if len(tx.To) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %s target must be %d bytes", ErrMissingTarget, tx.Type, common.AddressLength)
	}
	return tx.ToAddress(), nil
}

func (sp *StateProcessor) applyTransfer(sender common.Address, tx *types.Transaction) error {
	to, err := requireTarget(tx)
	if err != nil {
		return err
	}
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return ErrInvalidValue
	}
	amount, overflow := uint256.FromBig(value)
	if overflow {
		return ErrInvalidValue
	}
	return bank.Transfer(sp.State, sp.pending, sender, to, amount)
}

func (sp *StateProcessor) applyClone(sender common.Address, tx *types.Transaction) (*common.Address, error) {
	factory, err := requireTarget(tx)
	if err != nil {
		return nil, err
	}
	var payload types.ClonePayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return nil, err
	}
	salt := new(uint256.Int).SetBytes32(payload.Salt[:])
	addr, err := sp.Forwarders.Clone(sender, factory, payload.Destination, salt)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (sp *StateProcessor) applyFactoryFlush(sender common.Address, tx *types.Transaction) error {
	factory, err := requireTarget(tx)
	if err != nil {
		return err
	}
	var payload types.FactoryFlushPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	if tx.Type == types.TxTypeFactoryFlushNative {
		_, err = sp.Forwarders.FactoryFlushNative(sender, factory, payload.Forwarder)
		return err
	}
	_, err = sp.Forwarders.FactoryFlushToken(sender, factory, payload.Forwarder, payload.Token)
	return err
}

func (sp *StateProcessor) applyInit(sender common.Address, tx *types.Transaction) error {
	target, err := requireTarget(tx)
	if err != nil {
		return err
	}
	var payload types.InitPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	return sp.Forwarders.Init(sender, target, payload.Destination)
}

func (sp *StateProcessor) applyFlushToken(sender common.Address, tx *types.Transaction) error {
	target, err := requireTarget(tx)
	if err != nil {
		return err
	}
	var payload types.TokenFlushPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	_, err = sp.Forwarders.FlushToken(sender, target, payload.Token)
	return err
}

func (sp *StateProcessor) applyDeployToken(sender common.Address, tx *types.Transaction) (*common.Address, error) {
	var payload types.DeployTokenPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return nil, err
	}
	addr := ethcrypto.CreateAddress(sender, tx.Nonce)
	meta := token.Metadata{Name: payload.Name, Symbol: payload.Symbol, Decimals: payload.Decimals, TotalSupply: payload.Supply}
	if err := sp.Tokens.Deploy(addr, sender, meta); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (sp *StateProcessor) applyTokenTransfer(sender common.Address, tx *types.Transaction) error {
	tokenAddr, err := requireTarget(tx)
	if err != nil {
		return err
	}
	var payload types.TokenTransferPayload
	if err := types.DecodePayload(tx.Data, &payload); err != nil {
		return err
	}
	return sp.Tokens.Transfer(tokenAddr, sender, payload.Recipient, payload.Amount)
}
