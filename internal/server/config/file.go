package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "1s"-style strings and integer nanoseconds in both
// JSON and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(x)
	case int:
		d.Duration = time.Duration(x)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// fileConfig is the on-disk shape of the config file. Empty fields leave the
// current value untouched.
type fileConfig struct {
	HTTPAddr             string   `json:"http_addr" yaml:"http_addr"`
	GRPCAddr             string   `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN          string   `json:"database_dsn" yaml:"database_dsn"`
	JWTSecret            string   `json:"jwt_secret" yaml:"jwt_secret"`
	TokenCipher          string   `json:"token_cipher" yaml:"token_cipher"`
	KeyPath              string   `json:"key_path" yaml:"key_path"`
	SecretBackend        string   `json:"secret_backend" yaml:"secret_backend"`
	SecretBackendTimeout Duration `json:"secret_backend_timeout" yaml:"secret_backend_timeout"`
	VaultAddr            string   `json:"vault_addr" yaml:"vault_addr"`
	VaultToken           string   `json:"vault_token" yaml:"vault_token"`
	VaultMount           string   `json:"vault_mount" yaml:"vault_mount"`
	S3RootUser           string   `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword       string   `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket             string   `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region             string   `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint       string   `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	CouchDBURL           string   `json:"couchdb_url" yaml:"couchdb_url"`
	CouchDBName          string   `json:"couchdb_name" yaml:"couchdb_name"`
	LogLevel             string   `json:"log_level" yaml:"log_level"`
}

// parseFile overlays values from a JSON or YAML file; the format follows the
// file extension (.yaml/.yml, anything else is JSON).
func parseFile(config *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, c)
	default:
		err = json.Unmarshal(b, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.TokenCipher, c.TokenCipher)
	setString(&config.KeyPath, c.KeyPath)
	setString(&config.SecretBackend, c.SecretBackend)
	if c.SecretBackendTimeout.Duration != 0 {
		config.SecretBackendTimeout = c.SecretBackendTimeout.Duration
	}
	setString(&config.VaultAddr, c.VaultAddr)
	setString(&config.VaultToken, c.VaultToken)
	setString(&config.VaultMount, c.VaultMount)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.CouchDBURL, c.CouchDBURL)
	setString(&config.CouchDBName, c.CouchDBName)
	setString(&config.LogLevel, c.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
