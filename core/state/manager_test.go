package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"sweeper/storage"
)

func TestManagerCommitPersistsAndDiscardDrops(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	addr := common.HexToAddress("0x01")

	require.NoError(t, m.AddBalance(addr, uint256.NewInt(7)))
	m.Discard()
	bal, err := NewManager(db).Balance(addr)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.NoError(t, m.AddBalance(addr, uint256.NewInt(7)))
	require.NoError(t, m.Commit())
	bal, err = NewManager(db).Balance(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(7), bal)
	require.Zero(t, m.Pending())
}

func TestManagerRevertToSnapshot(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	a := common.HexToAddress("0xa")
	b := common.HexToAddress("0xb")

	require.NoError(t, m.AddBalance(a, uint256.NewInt(10)))
	snap := m.Snapshot()
	require.NoError(t, m.SubBalance(a, uint256.NewInt(4)))
	require.NoError(t, m.AddBalance(b, uint256.NewInt(4)))
	require.NoError(t, m.KVPut([]byte("marker"), uint64(1)))

	m.RevertToSnapshot(snap)

	balA, err := m.Balance(a)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), balA)
	balB, err := m.Balance(b)
	require.NoError(t, err)
	require.Zero(t, balB.Sign())
	found, err := m.KVGet([]byte("marker"), nil)
	require.NoError(t, err)
	require.False(t, found)
}

func TestSubBalanceInsufficient(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := common.HexToAddress("0x02")
	require.NoError(t, m.AddBalance(addr, uint256.NewInt(1)))
	err := m.SubBalance(addr, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestPlaceCodeRefusesOccupiedAddress(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := common.HexToAddress("0x03")

	// A balance received before deployment does not block placement.
	require.NoError(t, m.AddBalance(addr, uint256.NewInt(5)))
	require.NoError(t, m.PlaceCode(addr, []byte{0x60, 0x00}))

	code, err := m.Code(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)
	nonce, err := m.Nonce(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
	bal, err := m.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), bal)

	err = m.PlaceCode(addr, []byte{0x01})
	require.ErrorIs(t, err, ErrCodeCollision)

	// An account that has sent transactions is also occupied.
	eoa := common.HexToAddress("0x04")
	_, err = m.IncrementNonce(eoa)
	require.NoError(t, err)
	require.ErrorIs(t, m.PlaceCode(eoa, []byte{0x01}), ErrCodeCollision)
}

func TestStorageSlots(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	contract := common.HexToAddress("0x05")

	type record struct {
		Owner common.Address
		Count uint64
	}
	var out record
	found, err := m.StorageGet(contract, "rec", &out)
	require.NoError(t, err)
	require.False(t, found)

	in := record{Owner: common.HexToAddress("0x06"), Count: 3}
	require.NoError(t, m.StoragePut(contract, "rec", &in))
	found, err = m.StorageGet(contract, "rec", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)

	other := common.HexToAddress("0x07")
	found, err = m.StorageGet(other, "rec", &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestAccountRoundTripKeepsCodeHash(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := common.HexToAddress("0x08")
	require.NoError(t, m.PlaceCode(addr, []byte{0xfe}))

	acc, err := m.GetAccount(addr)
	require.NoError(t, err)
	acc.Balance = big.NewInt(99)
	require.NoError(t, m.PutAccount(addr, acc))

	has, err := m.HasCode(addr)
	require.NoError(t, err)
	require.True(t, has)
	bal, err := m.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(99), bal)
}

func TestEnsureStateVersion(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	require.NoError(t, m.EnsureStateVersion())
	require.Zero(t, m.Pending())

	reopened := NewManager(db)
	version, ok, err := reopened.StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)
	require.NoError(t, reopened.EnsureStateVersion())

	require.NoError(t, reopened.SetStateVersion(StateVersion+1))
	require.NoError(t, reopened.Commit())
	require.ErrorIs(t, NewManager(db).EnsureStateVersion(), ErrStateVersionMismatch)
}

func TestNextCreateAddress(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	deployer := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	first, err := m.NextCreateAddress(deployer)
	require.NoError(t, err)
	second, err := m.NextCreateAddress(deployer)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.CreateAddress(deployer, 0), first)
	require.Equal(t, ethcrypto.CreateAddress(deployer, 1), second)
	nonce, err := m.Nonce(deployer)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)
}
