package registry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestd/device-attestation-backend/interfaces"
	"github.com/attestd/device-attestation-backend/storage"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testDeviceID(t *testing.T, fill byte) interfaces.DeviceID {
	t.Helper()
	id, err := interfaces.NewDeviceIDFromBytes(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return id
}

func TestRegisterCreatesRecord(t *testing.T) {
	r := New(storage.NewMemoryStore(), testLog)
	id := testDeviceID(t, 0x01)

	identity, err := r.Register(context.Background(), id, "device-key-1")
	require.NoError(t, err)
	assert.True(t, id.Equal(identity.DeviceID))
	assert.Equal(t, interfaces.KeyID("device-key-1"), identity.KeyID)
	assert.False(t, identity.VerifiedAt.IsZero())

	registered, err := r.IsRegistered(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := New(storage.NewMemoryStore(), testLog)
	id := testDeviceID(t, 0x02)

	first, err := r.Register(context.Background(), id, "device-key-1")
	require.NoError(t, err)

	r.now = func() time.Time { return first.VerifiedAt.Add(time.Hour) }

	// Re-verification refreshes the timestamp but keeps the original key
	// binding.
	second, err := r.Register(context.Background(), id, "some-other-key")
	require.NoError(t, err)
	assert.Equal(t, interfaces.KeyID("device-key-1"), second.KeyID)
	assert.True(t, second.VerifiedAt.After(first.VerifiedAt))
}

func TestIsRegisteredUnknownDevice(t *testing.T) {
	r := New(storage.NewMemoryStore(), testLog)

	registered, err := r.IsRegistered(context.Background(), testDeviceID(t, 0x03))
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestRegisterConcurrentSameDevice(t *testing.T) {
	store := storage.NewMemoryStore()
	r := New(store, testLog)
	id := testDeviceID(t, 0x04)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Register(context.Background(), id, "device-key-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	identity, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.KeyID("device-key-1"), identity.KeyID)
}

func TestRegisterConcurrentDistinctDevices(t *testing.T) {
	r := New(storage.NewMemoryStore(), testLog)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		fill := byte(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := interfaces.NewDeviceIDFromBytes(bytes.Repeat([]byte{fill}, 32))
			assert.NoError(t, err)
			_, err = r.Register(context.Background(), id, "device-key-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 0; i < 64; i++ {
		id := testDeviceID(t, byte(i))
		registered, err := r.IsRegistered(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, registered)
	}
}
