package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// VaultStore persists identity records in HashiCorp Vault's KV v2 engine.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed identity store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: Vault KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "device-identities")
//   - token: Vault token; when empty the client falls back to VAULT_TOKEN
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Get retrieves a record by device ID using the KV v2 API.
func (s *VaultStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceIdentity, error) {
	path := s.recordPath(id)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrIdentityNotFound
	}

	// KV v2 wraps the payload in a "data" map.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	record, ok := data["record"].(string)
	if !ok {
		return nil, fmt.Errorf("record key not found in Vault data")
	}

	var identity interfaces.DeviceIdentity
	if err := json.Unmarshal([]byte(record), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity record: %w", err)
	}

	return &identity, nil
}

// Put saves a record, replacing any existing version for the same device.
func (s *VaultStore) Put(ctx context.Context, identity *interfaces.DeviceIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}

	path := s.recordPath(identity.DeviceID)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"record": string(data),
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		s.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored identity record in Vault",
		slog.String("deviceID", identity.DeviceID.String()))

	return nil
}

// Available checks if Vault is initialized and unsealed via the health
// endpoint.
func (s *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

func (s *VaultStore) recordPath(id interfaces.DeviceID) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, id.String())
}
