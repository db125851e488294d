// Package interfaces defines the core interfaces and types for the device
// attestation service. It provides the contract between components without
// implementation details.
package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeviceID is a 32-byte identifier derived deterministically from a device's
// attestation material. Rendered as a 64-character hex string on the wire.
type DeviceID [32]byte

// NewDeviceIDFromBytes creates a device ID from a raw 32-byte slice.
func NewDeviceIDFromBytes(source []byte) (DeviceID, error) {
	if len(source) != 32 {
		return DeviceID{}, errors.New("invalid DeviceID conversion from bytes: incorrect length")
	}

	var id DeviceID
	copy(id[:], source)
	return id, nil
}

// NewDeviceIDFromHex creates a device ID from a 64-character hex string.
func NewDeviceIDFromHex(source string) (DeviceID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return DeviceID{}, errors.New("invalid device ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return DeviceID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var id DeviceID
	copy(id[:], idBytes)
	return id, nil
}

// ComputeDeviceID derives a device ID as the SHA-256 hash of stable input.
func ComputeDeviceID(data []byte) DeviceID {
	hash := sha256.Sum256(data)
	return DeviceID(hash)
}

// String returns hex representation.
func (id DeviceID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte identifier.
func (id DeviceID) Bytes() []byte {
	return id[:]
}

// Equal compares two device IDs.
func (id DeviceID) Equal(other DeviceID) bool {
	return bytes.Equal(id[:], other[:])
}

// MarshalText renders the device ID as hex, also used for JSON encoding.
func (id DeviceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a hex-encoded device ID.
func (id *DeviceID) UnmarshalText(text []byte) error {
	parsed, err := NewDeviceIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// KeyID is the client-declared identifier of the hardware-backed key the
// attestation speaks for. Opaque to the server beyond basic shape checks.
type KeyID string

// NewKeyID creates a key identifier with validation.
func NewKeyID(source string) (KeyID, error) {
	if source == "" {
		return KeyID(""), errors.New("empty key identifier")
	}
	if len(source) > 128 {
		return KeyID(""), errors.New("key identifier too long: must be at most 128 characters")
	}
	return KeyID(source), nil
}

// String returns the key identifier as a string.
func (k KeyID) String() string {
	return string(k)
}

// Validate checks if the key identifier has a valid shape.
func (k KeyID) Validate() error {
	_, err := NewKeyID(string(k))
	return err
}

// DeviceIdentity is the registry record asserting a device/key pair has
// passed verification. Immutable after creation except for the VerifiedAt
// refresh on re-verification.
type DeviceIdentity struct {
	DeviceID   DeviceID  `json:"device_id"`
	KeyID      KeyID     `json:"key_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Subject identifies the device/key pair a credential is bound to.
type Subject struct {
	DeviceID DeviceID `json:"device_id"`
	KeyID    KeyID    `json:"key_id"`
}

// VerificationResult is the pipeline output on success.
type VerificationResult struct {
	Verified bool     `json:"verified"`
	DeviceID DeviceID `json:"device_id"`
}
