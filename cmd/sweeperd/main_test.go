package main

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"sweeper/config"
	"sweeper/core"
)

func TestOpenDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Database = config.DatabaseMemory
	db, err := openDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg.Database = config.DatabaseLevelDB
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	db, err = openDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg.Database = "postgres"
	_, err = openDatabase(cfg)
	require.Error(t, err)
}

func TestGenesisAllocs(t *testing.T) {
	cfg := config.Default()
	cfg.Genesis.Alloc = []config.GenesisAlloc{{Address: "0x00000000000000000000000000000000000000a1", Balance: "100"}}
	allocs, err := genesisAllocs(cfg)
	require.NoError(t, err)
	require.Equal(t, []core.GenesisAlloc{{Address: common.HexToAddress("0xa1"), Balance: big.NewInt(100)}}, allocs)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Database = config.DatabaseMemory
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.Observability.Metrics = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
