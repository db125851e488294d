package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// FileStore persists identity records as JSON files on the local file
// system, one file per device keyed by the hex device ID.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed identity store under the specified
// base directory, creating it if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	identityDir := filepath.Join(baseDir, "identities")
	if err := os.MkdirAll(identityDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create identities directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Get retrieves a record by device ID. Returns ErrIdentityNotFound if the
// file doesn't exist.
func (s *FileStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceIdentity, error) {
	filePath := s.recordPath(id)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	var identity interfaces.DeviceIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity record: %w", err)
	}

	s.log.Debug("Fetched identity record from file",
		slog.String("path", filePath))

	return &identity, nil
}

// Put saves a record, writing through a temp file so a crashed write never
// leaves a truncated record behind.
func (s *FileStore) Put(ctx context.Context, identity *interfaces.DeviceIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}

	filePath := s.recordPath(identity.DeviceID)
	tmpPath := filePath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to commit identity file: %w", err)
	}

	s.log.Debug("Stored identity record in file",
		slog.String("path", filePath),
		slog.String("deviceID", identity.DeviceID.String()))

	return nil
}

// Available checks if the store is accessible by verifying the base
// directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

func (s *FileStore) recordPath(id interfaces.DeviceID) string {
	return filepath.Join(s.baseDir, "identities", id.String()+".json")
}
