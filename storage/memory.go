// Package storage provides identity store backends for device identity
// records, selected by URI scheme through the factory.
package storage

import (
	"context"
	"sync"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// MemoryStore keeps identity records in process memory. Used for tests and
// single-instance deployments where persistence across restarts is not
// required.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[interfaces.DeviceID]interfaces.DeviceIdentity
}

// NewMemoryStore creates an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[interfaces.DeviceID]interfaces.DeviceIdentity),
	}
}

// Get retrieves a record by device ID.
func (s *MemoryStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, interfaces.ErrIdentityNotFound
	}

	copied := rec
	return &copied, nil
}

// Put saves a record, replacing any existing one for the same device.
func (s *MemoryStore) Put(ctx context.Context, identity *interfaces.DeviceIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[identity.DeviceID] = *identity
	return nil
}

// Available always reports true for the in-memory store.
func (s *MemoryStore) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this store.
func (s *MemoryStore) Name() string {
	return "mem"
}

// LocationURI returns the URI that identifies this store.
func (s *MemoryStore) LocationURI() string {
	return "mem://"
}
