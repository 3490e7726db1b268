package forwarder

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errNilState  = errors.New("forwarder engine: state not configured")
	errNilTokens = errors.New("forwarder engine: token ledger not configured")

	// ErrUnauthorizedCaller is matched by every UnauthorizedCallerError.
	ErrUnauthorizedCaller = errors.New("forwarder: unauthorized caller")
	// ErrNullDestinationAddress rejects the zero address as a sweep destination.
	ErrNullDestinationAddress = errors.New("forwarder: null destination address")
	// ErrAlreadyInitialized rejects a second init of a bound forwarder.
	ErrAlreadyInitialized = errors.New("forwarder: already initialized")
	// ErrSaltCollision is matched by every SaltCollisionError.
	ErrSaltCollision = errors.New("forwarder: salt already used")
	// ErrForwarderNotFound is returned when the target carries no forwarder code.
	ErrForwarderNotFound = errors.New("forwarder: no forwarder at address")
	// ErrFactoryNotFound is returned when the target carries no factory code.
	ErrFactoryNotFound = errors.New("forwarder: no factory at address")
)

// UnauthorizedCallerError reports the identity that attempted a privileged
// operation it does not own. An uninitialized forwarder has no owner, so every
// caller receives this error.
type UnauthorizedCallerError struct {
	Caller common.Address
}

func (e *UnauthorizedCallerError) Error() string {
	return fmt.Sprintf("forwarder: unauthorized caller %s", e.Caller.Hex())
}

func (e *UnauthorizedCallerError) Is(target error) bool { return target == ErrUnauthorizedCaller }

// SaltCollisionError reports a clone whose derived address is already
// occupied.
type SaltCollisionError struct {
	Salt    *uint256.Int
	Address common.Address
}

func (e *SaltCollisionError) Error() string {
	salt := "0"
	if e.Salt != nil {
		salt = e.Salt.Dec()
	}
	return fmt.Sprintf("forwarder: salt %s already used by %s", salt, e.Address.Hex())
}

func (e *SaltCollisionError) Is(target error) bool { return target == ErrSaltCollision }
