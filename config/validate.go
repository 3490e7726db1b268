package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"sweeper/crypto"
)

// Allocation is a parsed genesis allocation.
type Allocation struct {
	Address common.Address
	Balance *big.Int
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	switch c.Database {
	case DatabaseLevelDB:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("config: DataDir required for leveldb")
		}
	case DatabaseMemory:
	default:
		return fmt.Errorf("config: unsupported Database %q", c.Database)
	}
	if c.Auth.Enabled && len(c.Auth.HMACSecret) < 32 {
		return fmt.Errorf("config: Auth.HMACSecret must be at least 32 bytes when auth is enabled")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: RateLimit values must not be negative")
	}
	if c.Observability.Tracing && strings.TrimSpace(c.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("config: Observability.OTLPEndpoint required when tracing is enabled")
	}
	if strings.TrimSpace(c.Webhook.URL) != "" && strings.TrimSpace(c.Webhook.Secret) == "" {
		return fmt.Errorf("config: Webhook.Secret required when Webhook.URL is set")
	}
	if _, err := c.Allocations(); err != nil {
		return err
	}
	return nil
}

// Allocations parses the genesis allocations.
func (c *Config) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0, len(c.Genesis.Alloc))
	seen := make(map[common.Address]struct{}, len(c.Genesis.Alloc))
	for i, alloc := range c.Genesis.Alloc {
		addr, err := crypto.ParseAddress(alloc.Address)
		if err != nil {
			return nil, fmt.Errorf("config: Genesis.Alloc[%d].Address: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("config: Genesis.Alloc[%d] duplicates %s", i, addr.Hex())
		}
		seen[addr] = struct{}{}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Balance), 10)
		if !ok || balance.Sign() < 0 {
			return nil, fmt.Errorf("config: Genesis.Alloc[%d].Balance must be a non-negative integer", i)
		}
		out = append(out, Allocation{Address: addr, Balance: balance})
	}
	return out, nil
}
