package attestation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// Verifier runs the full verification pipeline for one attestation:
// decode, shape validation, chain validation, challenge binding, receipt
// parsing, and finally the registry write.
type Verifier struct {
	chain    *ChainValidator
	registry interfaces.IdentityRegistry
	log      *slog.Logger
}

// NewVerifier creates a pipeline bound to the startup trust configuration
// and the identity registry.
func NewVerifier(cfg *Config, registry interfaces.IdentityRegistry, log *slog.Logger) *Verifier {
	return &Verifier{
		chain:    NewChainValidator(cfg, log),
		registry: registry,
		log:      log,
	}
}

// Verify checks raw attestation bytes against a consumed challenge and
// registers the derived device identity on success.
//
// Chain validation and challenge binding are both always evaluated: an
// invalid chain never masks a challenge mismatch and vice versa. The
// registry write happens only after every check has passed and the context
// is still live, so a failed or cancelled request leaves no partial state.
func (v *Verifier) Verify(ctx context.Context, raw []byte, challenge []byte, keyID interfaces.KeyID) (*interfaces.VerificationResult, error) {
	obj, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if err := obj.ValidateShape(); err != nil {
		return nil, err
	}

	certs, err := obj.Certificates()
	if err != nil {
		return nil, err
	}

	chainOK := v.chain.Verify(certs)
	boundOK := Bind(obj.AuthData, challenge)

	if !boundOK {
		return nil, interfaces.NewPipelineError(interfaces.KindChallengeMismatch,
			errors.New("attestation nonce does not bind to challenge"))
	}
	if !chainOK {
		return nil, interfaces.NewPipelineError(interfaces.KindChainError,
			errors.New("certificate chain not rooted in configured trust anchor"))
	}

	deviceID, err := ParseReceipt(obj.Statement.Receipt, certs)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity, err := v.registry.Register(ctx, deviceID, keyID)
	if err != nil {
		v.log.Error("Registry write failed after successful verification", "err", err,
			slog.String("deviceID", deviceID.String()))
		return nil, err
	}

	v.log.Info("Attestation verified",
		slog.String("deviceID", identity.DeviceID.String()),
		slog.String("keyID", identity.KeyID.String()))

	return &interfaces.VerificationResult{
		Verified: true,
		DeviceID: identity.DeviceID,
	}, nil
}
