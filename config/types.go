package config

// GenesisAlloc credits an initial native balance. Address accepts hex or swp
// bech32; Balance is a base-10 integer string.
type GenesisAlloc struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

type Genesis struct {
	Alloc []GenesisAlloc `toml:"Alloc"`
}

// Auth guards the JSON-RPC endpoint with HS256 bearer tokens.
type Auth struct {
	Enabled    bool   `toml:"Enabled"`
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
	// ScopeClaim names the claim that must grant the "sweep:write" scope for
	// transaction submission.
	ScopeClaim string `toml:"ScopeClaim"`
}

// RateLimit bounds JSON-RPC requests per client IP.
type RateLimit struct {
	RequestsPerMinute int `toml:"RequestsPerMinute"`
	Burst             int `toml:"Burst"`
}

type Observability struct {
	LogLevel      string `toml:"LogLevel"`
	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays"`
	Metrics       bool   `toml:"Metrics"`
	Tracing       bool   `toml:"Tracing"`
	OTLPEndpoint  string `toml:"OTLPEndpoint"`
	OTLPInsecure  bool   `toml:"OTLPInsecure"`
	OTLPHeaders   string `toml:"OTLPHeaders"`
}

// NATS publishes committed events when URL is set.
type NATS struct {
	URL           string `toml:"URL"`
	SubjectPrefix string `toml:"SubjectPrefix"`
}

// Webhook delivers committed events to an HTTP endpoint when URL is set.
// Deliveries are signed with HMAC-SHA256 over Secret.
type Webhook struct {
	URL           string   `toml:"URL"`
	Secret        string   `toml:"Secret"`
	EventPrefixes []string `toml:"EventPrefixes"`
}
