package forwarder

import (
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ImplementationCode marks an account running forwarder logic directly:
	// a factory's parent or a stand-alone forwarder.
	ImplementationCode = []byte("sweeper.native.forwarder/v1")
	// FactoryCode marks a forwarder factory account.
	FactoryCode = []byte("sweeper.native.forwarder-factory/v1")
)

const (
	slotForwarder = "forwarder.state"
	slotFactory   = "forwarder.factory"
)

// record is the persisted storage of a forwarder instance. Both fields are
// zero until init binds them together.
type record struct {
	Owner       common.Address
	Destination common.Address
}

type factoryRecord struct {
	Owner  common.Address
	Parent common.Address
}

// Forwarder is a read-only view of a forwarder instance.
type Forwarder struct {
	Address common.Address
	// Implementation is the account whose code the instance runs. It equals
	// Address for stand-alone forwarders and the parent for clones.
	Implementation common.Address
	Owner          common.Address
	Destination    common.Address
}

// Initialized reports whether init has bound the instance.
func (f *Forwarder) Initialized() bool {
	return f != nil && f.Owner != (common.Address{})
}

// IsClone reports whether the instance is a minimal proxy.
func (f *Forwarder) IsClone() bool {
	return f != nil && f.Implementation != f.Address
}

// Factory is a read-only view of a forwarder factory.
type Factory struct {
	Address common.Address
	Owner   common.Address
	Parent  common.Address
}
