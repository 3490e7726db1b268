package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"sweeper/core/events"
	"sweeper/core/state"
	"sweeper/core/types"
	"sweeper/native/forwarder"
	"sweeper/native/token"
	"sweeper/observability/metrics"
	"sweeper/storage"
)

// Node owns the ledger and applies transactions one at a time. Every
// transaction either commits all of its writes in one database batch and then
// publishes its events, or leaves no trace.
type Node struct {
	db        storage.Database
	state     *state.Manager
	processor *StateProcessor
	emitter   events.Emitter
	logger    *slog.Logger
	stateMu   sync.Mutex
}

// NewNode opens the ledger stored in db, stamping a fresh database with the
// current state layout version.
func NewNode(db storage.Database) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	manager := state.NewManager(db)
	if err := manager.EnsureStateVersion(); err != nil {
		return nil, err
	}
	return &Node{
		db:        db,
		state:     manager,
		processor: NewStateProcessor(manager),
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
	}, nil
}

// SetEmitter configures where committed events are published. Passing nil
// discards them.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetLogger overrides the default slog logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// SubmitTransaction applies tx atomically and returns its receipt. Concurrent
// submissions are serialised; of two clones racing for one salt, exactly one
// lands and the other observes forwarder.ErrSaltCollision.
func (n *Node) SubmitTransaction(tx *types.Transaction) (*types.Receipt, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	receipt, err := n.processor.ApplyTransaction(tx)
	if err == nil {
		if commitErr := n.state.Commit(); commitErr != nil {
			err = fmt.Errorf("core: commit: %w", commitErr)
		}
	}
	if err != nil {
		n.processor.Reset()
		n.observe(tx, err)
		return nil, err
	}
	n.processor.PendingEvents().Flush(n.emitter)
	n.observe(tx, nil)
	n.logger.Debug("transaction applied",
		slog.String("tx_type", receipt.Type.String()),
		slog.String("tx_hash", receipt.TxHash.Hex()),
		slog.String("sender", receipt.Sender.Hex()),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (n *Node) observe(tx *types.Transaction, err error) {
	if tx == nil {
		return
	}
	outcome := outcomeOf(err)
	m := metrics.Sweeper()
	m.ObserveTransaction(tx.Type.String(), outcome)
	switch tx.Type {
	case types.TxTypeCloneForwarder:
		m.ObserveClone(outcome)
	case types.TxTypeInitForwarder:
		m.ObserveInit(outcome)
	case types.TxTypeFactoryFlushNative, types.TxTypeForwarderFlushNative:
		m.ObserveFlush("native", outcome)
	case types.TxTypeFactoryFlushToken, types.TxTypeForwarderFlushToken:
		m.ObserveFlush("token", outcome)
	}
	if err != nil {
		attrs := []any{
			slog.String("tx_type", tx.Type.String()),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		}
		if sender, fromErr := tx.From(); fromErr == nil {
			attrs = append(attrs, slog.String("sender", sender.Hex()))
		}
		n.logger.Info("transaction rejected", attrs...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, forwarder.ErrUnauthorizedCaller):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, forwarder.ErrNullDestinationAddress):
		return metrics.OutcomeNullDestination
	case errors.Is(err, forwarder.ErrAlreadyInitialized):
		return metrics.OutcomeAlreadyInitialized
	case errors.Is(err, forwarder.ErrSaltCollision):
		return metrics.OutcomeSaltCollision
	case errors.Is(err, forwarder.ErrForwarderNotFound),
		errors.Is(err, forwarder.ErrFactoryNotFound),
		errors.Is(err, token.ErrTokenNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeRejected
	}
}
