package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	vault "github.com/hashicorp/vault/api"
)

// VaultBackend stores documents in a HashiCorp Vault KV version 2 engine.
type VaultBackend struct {
	kv *vault.KVv2
}

// NewVaultBackend connects to the Vault server at addr, authenticating with
// token, and uses the KV v2 engine mounted at mount.
func NewVaultBackend(addr, token, mount string) (*VaultBackend, error) {
	cfg := vault.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return &VaultBackend{kv: client.KVv2(mount)}, nil
}

func (v *VaultBackend) Read(ctx context.Context, path string) (map[string]string, error) {
	secret, err := v.kv.Get(ctx, path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("vault read: %w", err)
	}

	doc := make(map[string]string, len(secret.Data))
	for k, val := range secret.Data {
		if s, ok := val.(string); ok {
			doc[k] = s
		}
	}
	return doc, nil
}

func (v *VaultBackend) Write(ctx context.Context, path string, data map[string]string) error {
	payload := make(map[string]any, len(data))
	for k, val := range data {
		payload[k] = val
	}
	if _, err := v.kv.Put(ctx, path, payload); err != nil {
		return fmt.Errorf("vault write: %w", err)
	}
	return nil
}
