package forwarder

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/types"
)

const (
	EventTypeFactoryDeployed = "forwarder.factory_deployed"
	EventTypeCloned          = "forwarder.cloned"
	EventTypeInitialized     = "forwarder.initialized"
	EventTypeFlushedNative   = "forwarder.flushed_native"
	EventTypeFlushedToken    = "forwarder.flushed_token"
)

// NewFactoryDeployedEvent returns the payload emitted when a factory and its
// parent implementation are deployed.
func NewFactoryDeployedEvent(f *Factory) *types.Event {
	return &types.Event{Type: EventTypeFactoryDeployed, Attributes: map[string]string{
		"factory": f.Address.Hex(),
		"owner":   f.Owner.Hex(),
		"parent":  f.Parent.Hex(),
	}}
}

// NewClonedEvent returns the ForwarderCloned payload.
func NewClonedEvent(factory, addr, destination common.Address, salt *uint256.Int) *types.Event {
	saltStr := "0"
	if salt != nil {
		saltStr = salt.Dec()
	}
	return &types.Event{Type: EventTypeCloned, Attributes: map[string]string{
		"factory":     factory.Hex(),
		"address":     addr.Hex(),
		"destination": destination.Hex(),
		"salt":        saltStr,
	}}
}

// NewInitializedEvent records a forwarder being bound to its owner and destination.
func NewInitializedEvent(forwarder, owner, destination common.Address) *types.Event {
	return &types.Event{Type: EventTypeInitialized, Attributes: map[string]string{
		"forwarder":   forwarder.Hex(),
		"owner":       owner.Hex(),
		"destination": destination.Hex(),
	}}
}

// NewFlushedNativeEvent records a native balance swept to the destination.
func NewFlushedNativeEvent(forwarder, destination common.Address, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeFlushedNative, Attributes: map[string]string{
		"forwarder":   forwarder.Hex(),
		"destination": destination.Hex(),
		"amount":      amount.String(),
	}}
}

// NewFlushedTokenEvent records a token balance swept to the destination.
func NewFlushedTokenEvent(forwarder, token, destination common.Address, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeFlushedToken, Attributes: map[string]string{
		"forwarder":   forwarder.Hex(),
		"token":       token.Hex(),
		"destination": destination.Hex(),
		"amount":      amount.String(),
	}}
}
