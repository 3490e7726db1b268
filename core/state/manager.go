package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"sweeper/storage"
)

var (
	// ErrCodeCollision is returned by PlaceCode when the target address is
	// already occupied by code or has a non-zero nonce.
	ErrCodeCollision = errors.New("state: address already occupied")
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
)

type dirtyEntry struct {
	value []byte
}

type journalEntry struct {
	key     string
	prev    dirtyEntry
	hadPrev bool
}

// Manager reads and writes ledger state through a write journal layered over
// the backing database. Mutations stay in memory until Commit flushes them in
// a single batch; Discard drops them. Snapshot and RevertToSnapshot roll back
// a suffix of the journal so a failing sub-operation leaves no trace.
//
// Manager is not safe for concurrent use; the node serialises access.
type Manager struct {
	db      storage.Database
	dirty   map[string]dirtyEntry
	journal []journalEntry
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		dirty: make(map[string]dirtyEntry),
	}
}

func hashedKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

// get returns nil without error when the key is absent.
func (m *Manager) get(key []byte) ([]byte, error) {
	if entry, ok := m.dirty[string(key)]; ok {
		return entry.value, nil
	}
	if m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) record(key string) {
	prev, hadPrev := m.dirty[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: hadPrev})
}

func (m *Manager) put(key, value []byte) {
	k := string(key)
	m.record(k)
	m.dirty[k] = dirtyEntry{value: append([]byte(nil), value...)}
}

// Snapshot returns an identifier for the current journal position.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot undoes every mutation recorded after the snapshot was
// taken. Unknown identifiers are ignored.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

// Pending reports the number of keys that would be written by Commit.
func (m *Manager) Pending() int {
	return len(m.dirty)
}

// Commit writes all pending mutations to the database in one batch and
// resets the journal.
func (m *Manager) Commit() error {
	if len(m.dirty) == 0 {
		m.journal = nil
		return nil
	}
	if m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	batch := m.db.NewBatch()
	for key, entry := range m.dirty {
		batch.Put([]byte(key), entry.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every pending mutation.
func (m *Manager) Discard() {
	m.dirty = make(map[string]dirtyEntry)
	m.journal = nil
}

func kvKey(key []byte) []byte {
	return hashedKey([]byte("kv:"), key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
