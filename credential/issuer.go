// Package credential mints and verifies device-bound bearer credentials.
// Credentials are stateless ES256 JWTs: the server keeps no record of
// issued tokens, and validity is checked purely by signature and expiry.
package credential

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// signingKeyInfo is the HKDF info label for the credential signing key.
const signingKeyInfo = "credential-signing-key"

// Claims is the credential payload. The subject is the device ID in hex;
// the key ID rides in a private claim.
type Claims struct {
	KeyID string `json:"key_id"`
	jwt.RegisteredClaims
}

// Issuer implements interfaces.CredentialIssuer with a signing key derived
// deterministically from a master seed at startup.
type Issuer struct {
	key      *ecdsa.PrivateKey
	registry interfaces.IdentityRegistry
	log      *slog.Logger
	now      func() time.Time
}

// NewIssuer derives the ES256 signing key from the master seed and binds
// the issuer to the identity registry. The seed must be at least 32 bytes;
// a missing or short seed is a startup error, never a per-request one.
func NewIssuer(masterSeed []byte, registry interfaces.IdentityRegistry, log *slog.Logger) (*Issuer, error) {
	if len(masterSeed) < 32 {
		return nil, errors.New("master seed must be at least 32 bytes")
	}

	key, err := deriveSigningKey(masterSeed)
	if err != nil {
		return nil, fmt.Errorf("deriving credential signing key: %w", err)
	}

	return &Issuer{
		key:      key,
		registry: registry,
		log:      log,
		now:      time.Now,
	}, nil
}

// PublicKey returns the credential verification key.
func (i *Issuer) PublicKey() *ecdsa.PublicKey {
	return &i.key.PublicKey
}

// Issue mints a signed credential for a registered device/key pair.
// Issuing for an unregistered device is a programming error in the caller
// and is rejected with KindUnauthorizedDevice.
func (i *Issuer) Issue(ctx context.Context, subject interfaces.Subject, ttl time.Duration) (string, time.Time, error) {
	registered, err := i.registry.IsRegistered(ctx, subject.DeviceID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("checking device registration: %w", err)
	}
	if !registered {
		return "", time.Time{}, interfaces.NewPipelineError(interfaces.KindUnauthorizedDevice,
			fmt.Errorf("device %s is not registered", subject.DeviceID))
	}

	now := i.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		KeyID: subject.KeyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewRandom()).String(),
			Subject:   subject.DeviceID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing credential: %w", err)
	}

	i.log.Debug("Issued credential",
		slog.String("deviceID", subject.DeviceID.String()),
		slog.Time("expiresAt", expiresAt))

	return token, expiresAt, nil
}

// Verify checks a credential's signature and expiry and returns its
// subject. Validity is self-contained; there is no round trip to any
// store.
func (i *Issuer) Verify(credential string) (interfaces.Subject, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return &i.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return interfaces.Subject{}, interfaces.NewPipelineError(interfaces.KindExpired, err)
		}
		return interfaces.Subject{}, interfaces.NewPipelineError(interfaces.KindInvalidSignature, err)
	}

	deviceID, err := interfaces.NewDeviceIDFromHex(claims.Subject)
	if err != nil {
		return interfaces.Subject{}, interfaces.NewPipelineError(interfaces.KindInvalidSignature,
			fmt.Errorf("credential subject is not a device ID: %w", err))
	}

	keyID, err := interfaces.NewKeyID(claims.KeyID)
	if err != nil {
		return interfaces.Subject{}, interfaces.NewPipelineError(interfaces.KindInvalidSignature,
			fmt.Errorf("credential carries no usable key ID: %w", err))
	}

	return interfaces.Subject{DeviceID: deviceID, KeyID: keyID}, nil
}

// deriveSigningKey stretches the master seed through HKDF and builds a
// deterministic P-256 key from it, so the same seed always yields the same
// verification key across restarts.
func deriveSigningKey(masterSeed []byte) (*ecdsa.PrivateKey, error) {
	reader := hkdf.New(sha256.New, masterSeed, nil, []byte(signingKeyInfo))

	secret := make([]byte, 32)
	if _, err := reader.Read(secret); err != nil {
		return nil, err
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(secret)
	d.Mod(d, new(big.Int).Sub(curve.Params().N, big.NewInt(1)))
	d.Add(d, big.NewInt(1))

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())

	return key, nil
}
