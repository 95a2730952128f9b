// Package config loads runtime configuration for the photorestore CLI.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $CONFIG.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   address:port of the ProfileService gRPC endpoint
//	-i int      online status check interval (seconds)
//	-d string   SQLite DSN for the local session cache
//	-t int      per-request timeout (seconds)
//	-l string   log level (debug, info, warn, error)
//
// Durations in JSON use timex.Duration, so "3s" and integer nanoseconds are
// both accepted:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s",
//	  "profile_retry_attempts": 5
//	}
package config
