package interfaces

import (
	"context"
	"time"
)

// IdentityRegistry records which device identities have passed verification.
// Register is idempotent; concurrent calls for the same device must not lose
// the registration or produce divergent records.
type IdentityRegistry interface {
	// Register creates a record for the device/key pair, or refreshes
	// VerifiedAt on an existing record.
	Register(ctx context.Context, id DeviceID, keyID KeyID) (*DeviceIdentity, error)

	// IsRegistered reports whether the device has a verified identity.
	IsRegistered(ctx context.Context, id DeviceID) (bool, error)
}

// CredentialIssuer mints and verifies device-bound bearer credentials.
// Credentials are stateless: validity is checked purely by signature and
// expiry.
type CredentialIssuer interface {
	// Issue mints a signed credential for a registered device. Fails with
	// KindUnauthorizedDevice if the device is not registered.
	Issue(ctx context.Context, subject Subject, ttl time.Duration) (string, time.Time, error)

	// Verify checks a credential and returns its subject. Fails with
	// KindInvalidSignature or KindExpired.
	Verify(credential string) (Subject, error)
}
