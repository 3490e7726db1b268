package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"sweeper/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DatabaseLevelDB, cfg.Database)
	require.Equal(t, filepath.Join(cfg.DataDir, "index.db"), cfg.IndexPath)
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, again.ListenAddress)
	require.Equal(t, 600, again.RateLimit.RequestsPerMinute)
}

func TestLoadParsesSections(t *testing.T) {
	funded := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:9545"
DataDir = "/var/lib/sweeper"
Database = "MEMORY"
Environment = "staging"

[[Genesis.Alloc]]
Address = "` + funded.Hex() + `"
Balance = "1000000000000000000"

[[Genesis.Alloc]]
Address = "` + crypto.FromCommon(common.HexToAddress("0x02")).String() + `"
Balance = "5"

[Auth]
Enabled = true
HMACSecret = "0123456789abcdef0123456789abcdef"
Issuer = "custody"

[RateLimit]
RequestsPerMinute = 120
Burst = 10

[Observability]
LogFile = "/var/log/sweeper.log"
Tracing = true
OTLPEndpoint = "otel:4318"

[NATS]
URL = "nats://127.0.0.1:4222"

[Webhook]
URL = "https://hooks.example/sweeper"
Secret = "whsec"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DatabaseMemory, cfg.Database)
	require.Equal(t, "staging", cfg.Environment)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "scope", cfg.Auth.ScopeClaim)
	require.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, "otel:4318", cfg.Observability.OTLPEndpoint)
	require.Equal(t, "sweeper.events", cfg.NATS.SubjectPrefix)
	require.Equal(t, "https://hooks.example/sweeper", cfg.Webhook.URL)
	require.Equal(t, []string{"forwarder."}, cfg.Webhook.EventPrefixes)

	allocs, err := cfg.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	require.Equal(t, funded, allocs[0].Address)
	require.Equal(t, "1000000000000000000", allocs[0].Balance.String())
	require.Equal(t, common.HexToAddress("0x02"), allocs[1].Address)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "Bogus = 1\n",
		"bad database":     "Database = \"postgres\"\n",
		"short secret":     "[Auth]\nEnabled = true\nHMACSecret = \"short\"\n",
		"bad alloc amount": "[[Genesis.Alloc]]\nAddress = \"0x0000000000000000000000000000000000000001\"\nBalance = \"-1\"\n",
		"bad alloc addr":   "[[Genesis.Alloc]]\nAddress = \"nope\"\nBalance = \"1\"\n",
		"unsigned webhook": "[Webhook]\nURL = \"https://hooks.example/sweeper\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
