package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "TRACEKEEPER_"

// dotenvFile is loaded into the process environment when present. Variables
// already set in the environment win.
var dotenvFile = ".env"

type lookupFunc func(string) (string, bool)

// parseEnv overlays TRACEKEEPER_* variables, e.g. TRACEKEEPER_DATABASE_DSN.
func parseEnv(config *Config, lookup lookupFunc) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotenvFile, err)
	}

	fields := map[string]*string{
		"HTTP_ADDR":        &config.HTTPAddr,
		"GRPC_ADDR":        &config.GRPCAddr,
		"DATABASE_DSN":     &config.DatabaseDSN,
		"JWT_SECRET":       &config.JWTSecret,
		"TOKEN_CIPHER":     &config.TokenCipher,
		"KEY_PATH":         &config.KeyPath,
		"SECRET_BACKEND":   &config.SecretBackend,
		"VAULT_ADDR":       &config.VaultAddr,
		"VAULT_TOKEN":      &config.VaultToken,
		"VAULT_MOUNT":      &config.VaultMount,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
		"COUCHDB_URL":      &config.CouchDBURL,
		"COUCHDB_NAME":     &config.CouchDBName,
		"LOG_LEVEL":        &config.LogLevel,
	}
	for name, dst := range fields {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "SECRET_BACKEND_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSECRET_BACKEND_TIMEOUT: %w", EnvPrefix, err)
		}
		config.SecretBackendTimeout = d
	}
	return nil
}
