package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the photorestore CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration

	// CacheDSN points at the SQLite file holding the advisory session cache
	// and the token pair.
	CacheDSN string

	// RequestTimeout bounds every call to the profile backend.
	RequestTimeout time.Duration

	// ProfileRetryAttempts and ProfileRetryDelay drive the post-registration
	// profile poll; the delay doubles after each miss.
	ProfileRetryAttempts int
	ProfileRetryDelay    time.Duration

	// RestorationDelay is how long the placeholder restorer pretends to work.
	RestorationDelay time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.CacheDSN = "photorestore.db"
	c.RequestTimeout = 10 * time.Second
	c.ProfileRetryAttempts = 5
	c.ProfileRetryDelay = 200 * time.Millisecond
	c.RestorationDelay = 2 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig builds a Config from defaults, the JSON file and flags found in
// os.Args.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
