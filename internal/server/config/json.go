package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/flagx"
	"github.com/dmitrijs2005/photorestore/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration, so both "1m" and integer nanoseconds are accepted. Absent
// fields keep the value already present in Config.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	PublicBaseURL                string         `json:"public_base_url"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	PresignTTL                   timex.Duration `json:"s3_presign_ttl"`
	RedisAddr                    string         `json:"redis_addr"`
	AMQPURL                      string         `json:"amqp_url"`
	EventsExchange               string         `json:"events_exchange"`
	WebhookSecret                string         `json:"webhook_secret"`
	TrialTTL                     timex.Duration `json:"trial_ttl"`
	RateLimitPerMinute           int            `json:"rate_limit_per_minute"`
	AllowClientCreditGrants      *bool          `json:"allow_client_credit_grants"`
	MockCheckout                 *bool          `json:"mock_checkout"`
	LogLevel                     string         `json:"log_level"`
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

	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		panic(err)
	}

	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&cfg.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&cfg.PublicBaseURL, c.PublicBaseURL)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setDuration(&cfg.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&cfg.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&cfg.S3RootUser, c.S3RootUser)
	setString(&cfg.S3RootPassword, c.S3RootPassword)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&cfg.PresignTTL, c.PresignTTL)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.AMQPURL, c.AMQPURL)
	setString(&cfg.EventsExchange, c.EventsExchange)
	setString(&cfg.WebhookSecret, c.WebhookSecret)
	setDuration(&cfg.TrialTTL, c.TrialTTL)
	if c.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = c.RateLimitPerMinute
	}
	if c.AllowClientCreditGrants != nil {
		cfg.AllowClientCreditGrants = *c.AllowClientCreditGrants
	}
	if c.MockCheckout != nil {
		cfg.MockCheckout = *c.MockCheckout
	}
	setString(&cfg.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
