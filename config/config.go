package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DatabaseLevelDB = "leveldb"
	DatabaseMemory  = "memory"
)

type Config struct {
	ListenAddress string        `toml:"ListenAddress"`
	DataDir       string        `toml:"DataDir"`
	Database      string        `toml:"Database"`
	IndexPath     string        `toml:"IndexPath"`
	Environment   string        `toml:"Environment"`
	Genesis       Genesis       `toml:"Genesis"`
	Auth          Auth          `toml:"Auth"`
	RateLimit     RateLimit     `toml:"RateLimit"`
	Observability Observability `toml:"Observability"`
	NATS          NATS          `toml:"NATS"`
	Webhook       Webhook       `toml:"Webhook"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress: "127.0.0.1:8545",
		DataDir:       "./sweeper-data",
		Database:      DatabaseLevelDB,
		IndexPath:     "",
		Environment:   "local",
		Genesis:       Genesis{Alloc: []GenesisAlloc{}},
		Auth: Auth{
			ScopeClaim: "scope",
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 600,
			Burst:             60,
		},
		Observability: Observability{
			LogLevel:      "info",
			LogMaxSizeMB:  100,
			LogMaxBackups: 5,
			LogMaxAgeDays: 28,
			Metrics:       true,
			OTLPEndpoint:  "localhost:4318",
		},
		NATS: NATS{
			SubjectPrefix: "sweeper.events",
		},
		Webhook: Webhook{
			EventPrefixes: []string{"forwarder."},
		},
	}
}

// Load loads the configuration from the given path, writing the defaults there
// when the file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Database = strings.ToLower(strings.TrimSpace(c.Database))
	if c.Database == "" {
		c.Database = DatabaseLevelDB
	}
	if strings.TrimSpace(c.IndexPath) == "" {
		c.IndexPath = filepath.Join(c.DataDir, "index.db")
	}
	if strings.TrimSpace(c.Auth.ScopeClaim) == "" {
		c.Auth.ScopeClaim = "scope"
	}
	if strings.TrimSpace(c.NATS.SubjectPrefix) == "" {
		c.NATS.SubjectPrefix = "sweeper.events"
	}
	if c.Genesis.Alloc == nil {
		c.Genesis.Alloc = []GenesisAlloc{}
	}
}

// StatePath is where the LevelDB ledger lives.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
