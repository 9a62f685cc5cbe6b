package config

import (
	"io"

	"github.com/spf13/pflag"
)

// configFileFlag returns the value of -c/--config, or "".
func configFileFlag(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	path := fs.StringP("config", "c", "", "path to a JSON or YAML config file")
	_ = fs.Parse(args)
	return *path
}

// parseFlags overlays command-line flags. Unknown flags are ignored so other
// components can share the command line.
//
// Supported flags:
//
//	-l, --http-addr               HTTP bind address (e.g. ":8080")
//	-a, --grpc-addr               gRPC bind address (e.g. ":50051")
//	-d, --database-dsn            PostgreSQL DSN
//	-s, --jwt-secret              JWT HMAC secret key
//	    --token-cipher            aes-256-gcm or chacha20-poly1305
//	    --key-path                secret path of the temporary-id key
//	-k, --secret-backend          vault, s3, couchdb, postgres or memory
//	    --secret-backend-timeout  e.g. "5s"
//	    --vault-addr, --vault-token, --vault-mount
//	-u, --s3-user / -p, --s3-password / -b, --s3-bucket
//	-g, --s3-region / -e, --s3-endpoint
//	    --couchdb-url, --couchdb-name
//	    --log-level               debug, info, warn or error
func parseFlags(config *Config, args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	fs.StringP("config", "c", "", "path to a JSON or YAML config file")

	fs.StringVarP(&config.HTTPAddr, "http-addr", "l", config.HTTPAddr, "HTTP address and port to listen on")
	fs.StringVarP(&config.GRPCAddr, "grpc-addr", "a", config.GRPCAddr, "gRPC address and port to listen on")
	fs.StringVarP(&config.DatabaseDSN, "database-dsn", "d", config.DatabaseDSN, "database DSN")
	fs.StringVarP(&config.JWTSecret, "jwt-secret", "s", config.JWTSecret, "JWT secret key")
	fs.StringVar(&config.TokenCipher, "token-cipher", config.TokenCipher, "temporary id cipher suite")
	fs.StringVar(&config.KeyPath, "key-path", config.KeyPath, "secret path of the temporary id key")

	fs.StringVarP(&config.SecretBackend, "secret-backend", "k", config.SecretBackend, "secret backend")
	fs.DurationVar(&config.SecretBackendTimeout, "secret-backend-timeout", config.SecretBackendTimeout, "secret backend call timeout")

	fs.StringVar(&config.VaultAddr, "vault-addr", config.VaultAddr, "Vault address")
	fs.StringVar(&config.VaultToken, "vault-token", config.VaultToken, "Vault token")
	fs.StringVar(&config.VaultMount, "vault-mount", config.VaultMount, "Vault KV v2 mount")

	fs.StringVarP(&config.S3RootUser, "s3-user", "u", config.S3RootUser, "S3 root user")
	fs.StringVarP(&config.S3RootPassword, "s3-password", "p", config.S3RootPassword, "S3 root password")
	fs.StringVarP(&config.S3Bucket, "s3-bucket", "b", config.S3Bucket, "S3 bucket")
	fs.StringVarP(&config.S3Region, "s3-region", "g", config.S3Region, "S3 region")
	fs.StringVarP(&config.S3BaseEndpoint, "s3-endpoint", "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.CouchDBURL, "couchdb-url", config.CouchDBURL, "CouchDB URL")
	fs.StringVar(&config.CouchDBName, "couchdb-name", config.CouchDBName, "CouchDB database")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	return fs.Parse(args)
}
