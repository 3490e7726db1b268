package core

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"sweeper/core/events"
	"sweeper/core/types"
	"sweeper/native/forwarder"
	"sweeper/storage"
)

type testAccount struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newAccount(t *testing.T) testAccount {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return testAccount{key: key, addr: ethcrypto.PubkeyToAddress(key.PublicKey)}
}

type lockedRecorder struct {
	mu     sync.Mutex
	events []*types.Event
}

func (r *lockedRecorder) Emit(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payload := events.Canonical(evt); payload != nil {
		r.events = append(r.events, payload)
	}
}

func (r *lockedRecorder) ofType(typ string) []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Event
	for _, evt := range r.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func newTestNode(t *testing.T, db storage.Database) (*Node, *lockedRecorder) {
	t.Helper()
	node, err := NewNode(db)
	require.NoError(t, err)
	recorder := &lockedRecorder{}
	node.SetEmitter(recorder)
	return node, recorder
}

func signedTx(t *testing.T, node *Node, from testAccount, txType types.TxType, to *common.Address, value *big.Int, payload interface{}) *types.Transaction {
	t.Helper()
	nonce, err := node.Nonce(from.addr)
	require.NoError(t, err)
	tx := &types.Transaction{Type: txType, Nonce: nonce, Value: value}
	if to != nil {
		tx.To = to.Bytes()
	}
	if payload != nil {
		data, err := types.EncodePayload(payload)
		require.NoError(t, err)
		tx.Data = data
	}
	require.NoError(t, tx.Sign(from.key))
	return tx
}

func submit(t *testing.T, node *Node, tx *types.Transaction) *types.Receipt {
	t.Helper()
	receipt, err := node.SubmitTransaction(tx)
	require.NoError(t, err)
	return receipt
}

func saltWord(v uint64) [32]byte {
	return uint256.NewInt(v).Bytes32()
}

func TestNodeTokenSweepThroughFactory(t *testing.T) {
	node, recorder := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)
	destination := newAccount(t).addr

	factoryReceipt := submit(t, node, signedTx(t, node, operator, types.TxTypeDeployFactory, nil, nil, nil))
	require.NotNil(t, factoryReceipt.Created)
	factory := *factoryReceipt.Created
	require.Equal(t, ethcrypto.CreateAddress(operator.addr, 0), factory)

	tokenReceipt := submit(t, node, signedTx(t, node, operator, types.TxTypeDeployToken, nil, nil,
		&types.DeployTokenPayload{Name: "Mock", Symbol: "MCK", Decimals: 18, Supply: big.NewInt(1_000)}))
	tokenAddr := *tokenReceipt.Created

	predicted, err := node.ForwarderAddress(factory, uint256.NewInt(0))
	require.NoError(t, err)
	cloneReceipt := submit(t, node, signedTx(t, node, operator, types.TxTypeCloneForwarder, &factory, nil,
		&types.ClonePayload{Destination: destination, Salt: saltWord(0)}))
	require.Equal(t, predicted, *cloneReceipt.Created)

	cloned := recorder.ofType(forwarder.EventTypeCloned)
	require.Len(t, cloned, 1)
	require.Equal(t, predicted.Hex(), cloned[0].Attributes["address"])
	require.Equal(t, destination.Hex(), cloned[0].Attributes["destination"])

	submit(t, node, signedTx(t, node, operator, types.TxTypeTokenTransfer, &tokenAddr, nil,
		&types.TokenTransferPayload{Recipient: predicted, Amount: big.NewInt(10)}))

	submit(t, node, signedTx(t, node, operator, types.TxTypeFactoryFlushToken, &factory, nil,
		&types.FactoryFlushPayload{Forwarder: predicted, Token: tokenAddr}))

	destBal, err := node.TokenBalance(tokenAddr, destination)
	require.NoError(t, err)
	require.Equal(t, int64(10), destBal.Int64())
	fwdBal, err := node.TokenBalance(tokenAddr, predicted)
	require.NoError(t, err)
	require.Zero(t, fwdBal.Sign())
}

func TestNodeNativeSweepByDirectOwner(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	owner := newAccount(t)
	funder := newAccount(t)
	destination := newAccount(t).addr
	oneUnit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	_, err := node.ApplyGenesis([]GenesisAlloc{{Address: funder.addr, Balance: new(big.Int).Mul(oneUnit, big.NewInt(5))}})
	require.NoError(t, err)

	deployed := submit(t, node, signedTx(t, node, owner, types.TxTypeDeployForwarder, nil, nil, nil))
	fwd := *deployed.Created
	submit(t, node, signedTx(t, node, owner, types.TxTypeInitForwarder, &fwd, nil, &types.InitPayload{Destination: destination}))
	submit(t, node, signedTx(t, node, funder, types.TxTypeTransfer, &fwd, oneUnit, nil))

	submit(t, node, signedTx(t, node, owner, types.TxTypeForwarderFlushNative, &fwd, nil, nil))

	destBal, err := node.Balance(destination)
	require.NoError(t, err)
	require.Equal(t, 0, destBal.Cmp(oneUnit))
	fwdBal, err := node.Balance(fwd)
	require.NoError(t, err)
	require.Zero(t, fwdBal.Sign())
}

func TestNodeRejectedTransactionLeavesNoTrace(t *testing.T) {
	node, recorder := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)
	stranger := newAccount(t)
	factory := *submit(t, node, signedTx(t, node, operator, types.TxTypeDeployFactory, nil, nil, nil)).Created
	before := len(recorder.ofType(forwarder.EventTypeFactoryDeployed))

	tx := signedTx(t, node, stranger, types.TxTypeCloneForwarder, &factory, nil,
		&types.ClonePayload{Destination: operator.addr, Salt: saltWord(1)})
	_, err := node.SubmitTransaction(tx)
	var unauthorized *forwarder.UnauthorizedCallerError
	require.ErrorAs(t, err, &unauthorized)
	require.Equal(t, stranger.addr, unauthorized.Caller)

	nonce, err := node.Nonce(stranger.addr)
	require.NoError(t, err)
	require.Zero(t, nonce)
	predicted, err := node.ForwarderAddress(factory, uint256.NewInt(1))
	require.NoError(t, err)
	_, err = node.Forwarder(predicted)
	require.ErrorIs(t, err, forwarder.ErrForwarderNotFound)
	require.Empty(t, recorder.ofType(forwarder.EventTypeCloned))
	require.Len(t, recorder.ofType(forwarder.EventTypeFactoryDeployed), before)
}

func TestNodeNullDestinationClone(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)
	factory := *submit(t, node, signedTx(t, node, operator, types.TxTypeDeployFactory, nil, nil, nil)).Created

	_, err := node.SubmitTransaction(signedTx(t, node, operator, types.TxTypeCloneForwarder, &factory, nil,
		&types.ClonePayload{Salt: saltWord(4)}))
	require.ErrorIs(t, err, forwarder.ErrNullDestinationAddress)
}

func TestNodeNonceValidation(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)

	tx := &types.Transaction{Type: types.TxTypeDeployForwarder, Nonce: 3}
	require.NoError(t, tx.Sign(operator.key))
	_, err := node.SubmitTransaction(tx)
	require.ErrorIs(t, err, ErrNonceMismatch)

	first := signedTx(t, node, operator, types.TxTypeDeployForwarder, nil, nil, nil)
	submit(t, node, first)
	_, err = node.SubmitTransaction(first)
	require.ErrorIs(t, err, ErrNonceMismatch)

	unsigned := &types.Transaction{Type: types.TxTypeDeployForwarder}
	_, err = node.SubmitTransaction(unsigned)
	require.ErrorIs(t, err, types.ErrMissingSignature)

	bogus := &types.Transaction{Type: types.TxType(0x7f)}
	require.NoError(t, bogus.Sign(operator.key))
	_, err = node.SubmitTransaction(bogus)
	require.ErrorIs(t, err, ErrUnknownTxType)
}

func TestNodeRejectsValueOnCalls(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)
	_, err := node.SubmitTransaction(signedTx(t, node, operator, types.TxTypeDeployForwarder, nil, big.NewInt(1), nil))
	require.ErrorIs(t, err, ErrValueNotAllowed)
}

func TestNodeConcurrentSameSaltClones(t *testing.T) {
	node, recorder := newTestNode(t, storage.NewMemDB())
	operator := newAccount(t)
	factory := *submit(t, node, signedTx(t, node, operator, types.TxTypeDeployFactory, nil, nil, nil)).Created

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		collisions int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			destination := common.BigToAddress(big.NewInt(int64(1000 + i)))
			for {
				nonce, err := node.Nonce(operator.addr)
				if err != nil {
					t.Errorf("nonce: %v", err)
					return
				}
				data, _ := types.EncodePayload(&types.ClonePayload{Destination: destination, Salt: saltWord(99)})
				tx := &types.Transaction{Type: types.TxTypeCloneForwarder, Nonce: nonce, To: factory.Bytes(), Data: data}
				if err := tx.Sign(operator.key); err != nil {
					t.Errorf("sign: %v", err)
					return
				}
				_, err = node.SubmitTransaction(tx)
				if errors.Is(err, ErrNonceMismatch) {
					continue
				}
				mu.Lock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, forwarder.ErrSaltCollision):
					collisions++
				default:
					t.Errorf("unexpected error: %v", err)
				}
				mu.Unlock()
				return
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, collisions)
	require.Len(t, recorder.ofType(forwarder.EventTypeCloned), 1)
}

func TestNodeGenesisAppliedOnce(t *testing.T) {
	node, _ := newTestNode(t, storage.NewMemDB())
	addr := newAccount(t).addr
	allocs := []GenesisAlloc{{Address: addr, Balance: big.NewInt(500)}}

	applied, err := node.ApplyGenesis(allocs)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = node.ApplyGenesis(allocs)
	require.NoError(t, err)
	require.False(t, applied)

	bal, err := node.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, int64(500), bal.Int64())
}

func TestNodeStatePersistsInLevelDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	node, _ := newTestNode(t, db)
	operator := newAccount(t)
	factory := *submit(t, node, signedTx(t, node, operator, types.TxTypeDeployFactory, nil, nil, nil)).Created
	require.NoError(t, node.Close())

	db, err = storage.NewLevelDB(path)
	require.NoError(t, err)
	reopened, _ := newTestNode(t, db)
	defer reopened.Close()

	f, err := reopened.Factory(factory)
	require.NoError(t, err)
	require.Equal(t, operator.addr, f.Owner)
	nonce, err := reopened.Nonce(operator.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}
