// Package registry records which device identities have passed attestation
// verification. Registration is idempotent and append/update-only: there is
// no deletion path, and once a device is registered its existence never
// flickers back to unregistered.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// lockShards spreads per-device serialization so writes to unrelated
// devices proceed without contention.
const lockShards = 64

// Registry implements interfaces.IdentityRegistry on top of a pluggable
// identity store.
type Registry struct {
	store interfaces.IdentityStore
	locks [lockShards]sync.Mutex
	log   *slog.Logger
	now   func() time.Time
}

// New creates a registry backed by the given store.
func New(store interfaces.IdentityStore, log *slog.Logger) *Registry {
	return &Registry{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (r *Registry) lockFor(id interfaces.DeviceID) *sync.Mutex {
	return &r.locks[int(id[0])%lockShards]
}

// Register creates the identity record for the device, or refreshes
// VerifiedAt on the existing one. Concurrent calls for the same device are
// serialized; the record's key binding is set at creation and kept on
// re-verification.
func (r *Registry) Register(ctx context.Context, id interfaces.DeviceID, keyID interfaces.KeyID) (*interfaces.DeviceIdentity, error) {
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.store.Get(ctx, id)
	switch {
	case err == nil:
		existing.VerifiedAt = r.now()
		if err := r.store.Put(ctx, existing); err != nil {
			return nil, fmt.Errorf("refreshing device identity: %w", err)
		}
		r.log.Debug("Refreshed device identity", slog.String("deviceID", id.String()))
		return existing, nil

	case errors.Is(err, interfaces.ErrIdentityNotFound):
		identity := &interfaces.DeviceIdentity{
			DeviceID:   id,
			KeyID:      keyID,
			VerifiedAt: r.now(),
		}
		if err := r.store.Put(ctx, identity); err != nil {
			return nil, fmt.Errorf("recording device identity: %w", err)
		}
		r.log.Info("Registered device identity",
			slog.String("deviceID", id.String()),
			slog.String("keyID", keyID.String()))
		return identity, nil

	default:
		return nil, fmt.Errorf("reading device identity: %w", err)
	}
}

// IsRegistered reports whether the device has a verified identity record.
func (r *Registry) IsRegistered(ctx context.Context, id interfaces.DeviceID) (bool, error) {
	_, err := r.store.Get(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, interfaces.ErrIdentityNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("reading device identity: %w", err)
}
