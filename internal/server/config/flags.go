package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/flagx"
)

// parseFlags populates selected Config fields from args.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-R string   Redis address
//	-q string   AMQP URL
//	-l string   log level
//
// Duration flags are integers in minutes. A malformed value panics.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-h", "-d", "-s", "-t", "-r", "-b", "-e", "-R", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&cfg.EndpointAddrHTTP, "h", cfg.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(cfg.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.RedisAddr, "R", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.AMQPURL, "q", cfg.AMQPURL, "AMQP URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	cfg.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
