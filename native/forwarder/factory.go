package forwarder

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"sweeper/core/state"
)

// DeployFactory places a factory at addr owned by owner. The factory deploys
// its parent implementation from its own nonce; the parent stays an
// uninitialized forwarder that only serves as the clone template.
func (e *Engine) DeployFactory(owner, addr common.Address) (*Factory, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("forwarder: factory owner must not be zero")
	}
	var factory *Factory
	err := e.atomic(func() error {
		if err := e.state.PlaceCode(addr, FactoryCode); err != nil {
			return fmt.Errorf("forwarder: deploy factory: %w", err)
		}
		parent, err := e.state.NextCreateAddress(addr)
		if err != nil {
			return err
		}
		if err := e.state.PlaceCode(parent, ImplementationCode); err != nil {
			return fmt.Errorf("forwarder: deploy parent: %w", err)
		}
		if err := e.state.StoragePut(addr, slotFactory, &factoryRecord{Owner: owner, Parent: parent}); err != nil {
			return err
		}
		factory = &Factory{Address: addr, Owner: owner, Parent: parent}
		e.emit(NewFactoryDeployedEvent(factory))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return factory, nil
}

// Factory returns the view of the factory at addr.
func (e *Engine) Factory(addr common.Address) (*Factory, error) {
	return e.loadFactory(addr)
}

// ForwarderAddress returns the address a clone with salt would occupy. It
// does not check whether the clone exists.
func (e *Engine) ForwarderAddress(factory common.Address, salt *uint256.Int) (common.Address, error) {
	f, err := e.loadFactory(factory)
	if err != nil {
		return common.Address{}, err
	}
	return DeriveAddress(f.Address, f.Parent, salt), nil
}

// Clone deploys a minimal proxy of the factory's parent at the address derived
// from salt, binds it to destination with the factory as owner, and emits the
// cloned event. Only the factory owner may clone.
func (e *Engine) Clone(caller, factory, destination common.Address, salt *uint256.Int) (common.Address, error) {
	if salt == nil {
		salt = new(uint256.Int)
	}
	var addr common.Address
	err := e.atomic(func() error {
		f, err := e.loadFactory(factory)
		if err != nil {
			return err
		}
		if err := authorize(caller, f.Owner); err != nil {
			return err
		}
		// Placement precedes init, so a reused salt reports the collision
		// even when the destination is also null.
		addr = DeriveAddress(f.Address, f.Parent, salt)
		if err := e.state.PlaceCode(addr, CloneRuntimeCode(f.Parent)); err != nil {
			if errors.Is(err, state.ErrCodeCollision) {
				return &SaltCollisionError{Salt: new(uint256.Int).Set(salt), Address: addr}
			}
			return err
		}
		if err := e.init(f.Address, addr, destination); err != nil {
			return err
		}
		e.emit(NewClonedEvent(f.Address, addr, destination, salt))
		return nil
	})
	if err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// FactoryFlushNative sweeps the native balance of target on behalf of the
// factory owner. The factory checks the caller, then the forwarder checks the
// factory.
func (e *Engine) FactoryFlushNative(caller, factory, target common.Address) (*big.Int, error) {
	var moved *big.Int
	err := e.atomic(func() error {
		f, err := e.loadFactory(factory)
		if err != nil {
			return err
		}
		if err := authorize(caller, f.Owner); err != nil {
			return err
		}
		moved, err = e.flushNative(f.Address, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// FactoryFlushToken sweeps target's balance of token on behalf of the factory
// owner, with the same two checks as FactoryFlushNative.
func (e *Engine) FactoryFlushToken(caller, factory, target, token common.Address) (*big.Int, error) {
	var moved *big.Int
	err := e.atomic(func() error {
		f, err := e.loadFactory(factory)
		if err != nil {
			return err
		}
		if err := authorize(caller, f.Owner); err != nil {
			return err
		}
		moved, err = e.flushToken(f.Address, target, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}
