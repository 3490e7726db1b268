package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/glebarez/sqlite"

	"sweeper/core/events"
	"sweeper/native/forwarder"
)

// ErrPathRequired is returned when the index path is missing.
var ErrPathRequired = errors.New("index: path must be configured")

const writeTimeout = 5 * time.Second

// Record is one cloned forwarder as observed from committed events.
type Record struct {
	Factory     common.Address
	Address     common.Address
	Destination common.Address
	Salt        string
	IndexedAt   time.Time
}

// Index is a SQLite read model of forwarder clones. Ledger state stays the
// source of truth; the index only answers "which forwarders point at this
// destination" without scanning state.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// Open initialises the index at path, creating the schema when needed.
func Open(path string) (*Index, error) {
	dsn, err := FileDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serialises
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Index{db: db, logger: slog.Default(), nowFn: time.Now}, nil
}

// SetLogger overrides the logger used for asynchronous write failures.
func (i *Index) SetLogger(logger *slog.Logger) {
	if logger != nil {
		i.logger = logger
	}
}

// Close releases database resources.
func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

// Record stores a clone. Re-recording the same address is a no-op.
func (i *Index) Record(ctx context.Context, rec Record) error {
	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = i.nowFn().UTC()
	}
	_, err := i.db.ExecContext(ctx, `INSERT OR IGNORE INTO forwarders (address, factory, destination, salt, indexed_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Address.Hex(), rec.Factory.Hex(), rec.Destination.Hex(), rec.Salt, rec.IndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("record forwarder: %w", err)
	}
	return nil
}

// List returns the clones of factory in indexing order, optionally restricted
// to one destination.
func (i *Index) List(ctx context.Context, factory common.Address, destination *common.Address) ([]Record, error) {
	query := `SELECT address, factory, destination, salt, indexed_at FROM forwarders WHERE factory = ?`
	args := []any{factory.Hex()}
	if destination != nil {
		query += ` AND destination = ?`
		args = append(args, destination.Hex())
	}
	query += ` ORDER BY id ASC`
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list forwarders: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			addr, fac, dest, salt string
			indexedAt             int64
		)
		if err := rows.Scan(&addr, &fac, &dest, &salt, &indexedAt); err != nil {
			return nil, fmt.Errorf("scan forwarder: %w", err)
		}
		out = append(out, Record{
			Factory:     common.HexToAddress(fac),
			Address:     common.HexToAddress(addr),
			Destination: common.HexToAddress(dest),
			Salt:        salt,
			IndexedAt:   time.Unix(indexedAt, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// Emit implements events.Emitter. Only cloned events are indexed.
func (i *Index) Emit(evt events.Event) {
	if i == nil || evt == nil || evt.EventType() != forwarder.EventTypeCloned {
		return
	}
	payload := events.Canonical(evt)
	if payload == nil {
		return
	}
	attrs := payload.Attributes
	rec := Record{
		Factory:     common.HexToAddress(attrs["factory"]),
		Address:     common.HexToAddress(attrs["address"]),
		Destination: common.HexToAddress(attrs["destination"]),
		Salt:        attrs["salt"],
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := i.Record(ctx, rec); err != nil {
		i.logger.Error("index cloned forwarder",
			slog.String("address", rec.Address.Hex()),
			slog.String("error", err.Error()))
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS forwarders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    address TEXT NOT NULL UNIQUE,
    factory TEXT NOT NULL,
    destination TEXT NOT NULL,
    salt TEXT NOT NULL,
    indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forwarders_factory_destination ON forwarders(factory, destination);
`
