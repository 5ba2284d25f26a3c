package provider

import "time"

// Config is the static per-adapter configuration record. Credentials
// are resolved from environment variables named in the YAML config (see
// internal/config) and only ever live here once resolved.
type Config struct {
	Name               string
	Enabled            bool
	Priority           int
	RateLimitPerMinute int
	TimeoutSeconds     int
	APIKey             string
	APISecret          string
}

// Timeout returns the configured per-call timeout as a time.Duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasCredentials reports whether the fields the adapter declared as
// required were resolved. Adapters that need no credentials (keyless
// APIs) never call this; ones that do call it from their constructor and
// refuse to build rather than silently run unauthenticated.
func (c Config) HasCredentials() bool {
	return c.APIKey != ""
}
