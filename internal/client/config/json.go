package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/photorestore/internal/flagx"
	"github.com/dmitrijs2005/photorestore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent fields keep the
// value already present in Config.
type JsonConfig struct {
	ServerEndpointAddr   string         `json:"server_endpoint_addr"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval"`
	CacheDSN             string         `json:"cache_dsn"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	ProfileRetryAttempts int            `json:"profile_retry_attempts"`
	ProfileRetryDelay    timex.Duration `json:"profile_retry_delay"`
	RestorationDelay     timex.Duration `json:"restoration_delay"`
	LogLevel             string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config or $CONFIG.
// Read and decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.CacheDSN != "" {
		cfg.CacheDSN = jc.CacheDSN
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.ProfileRetryAttempts > 0 {
		cfg.ProfileRetryAttempts = jc.ProfileRetryAttempts
	}
	if jc.ProfileRetryDelay.Duration > 0 {
		cfg.ProfileRetryDelay = jc.ProfileRetryDelay.Duration
	}
	if jc.RestorationDelay.Duration > 0 {
		cfg.RestorationDelay = jc.RestorationDelay.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
