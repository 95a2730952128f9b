package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFileVar names the variable that points at an alternative .env file.
const EnvFileVar = "ENV_FILE"

// parseEnv loads path (".env" when empty) into the environment without
// overriding variables that are already set, then applies the known
// variables to cfg. A missing file is fine; a malformed value panics.
func parseEnv(cfg *Config, path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString(&cfg.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&cfg.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")
	envString(&cfg.DatabaseDSN, "DATABASE_DSN")
	envString(&cfg.SecretKey, "SECRET_KEY")
	envDuration(&cfg.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	envDuration(&cfg.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	envString(&cfg.S3RootUser, "S3_ROOT_USER")
	envString(&cfg.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&cfg.S3Bucket, "S3_BUCKET")
	envString(&cfg.S3Region, "S3_REGION")
	envString(&cfg.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envDuration(&cfg.PresignTTL, "S3_PRESIGN_TTL")
	envString(&cfg.RedisAddr, "REDIS_ADDR")
	envString(&cfg.AMQPURL, "RABBITMQ_URL")
	envString(&cfg.AMQPURL, "AMQP_URL")
	envString(&cfg.EventsExchange, "EVENTS_EXCHANGE")
	envString(&cfg.WebhookSecret, "WEBHOOK_SECRET")
	envDuration(&cfg.TrialTTL, "TRIAL_TTL")
	envInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envBool(&cfg.AllowClientCreditGrants, "ALLOW_CLIENT_CREDIT_GRANTS")
	envBool(&cfg.MockCheckout, "MOCK_CHECKOUT")
	envString(&cfg.LogLevel, "LOG_LEVEL")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	*dst = b
}
