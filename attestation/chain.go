package attestation

import (
	"crypto/x509"
	"log/slog"
	"time"
)

// ChainValidator proves an attestation certificate chain is rooted in the
// configured trust anchor. It holds no mutable state and is safe for
// concurrent use.
type ChainValidator struct {
	root       *x509.Certificate
	issuerName string
	maxChain   int
	log        *slog.Logger
}

// NewChainValidator creates a validator bound to the startup trust
// configuration.
func NewChainValidator(cfg *Config, log *slog.Logger) *ChainValidator {
	return &ChainValidator{
		root:       cfg.TrustedRoot,
		issuerName: cfg.IssuerName,
		maxChain:   cfg.MaxChainLength,
		log:        log,
	}
}

// Verify walks the chain leaf first. For each adjacent pair it checks the
// child is within its validity window and carries a signature verifiable
// with the parent's public key; the last certificate must be signed by the
// trusted root, and the leaf's issuer common name must match the configured
// attestation authority.
//
// Returns false on any broken link, never an error; the caller treats false
// as a hard rejection of the whole attestation. No network calls, no
// revocation checking.
func (v *ChainValidator) Verify(chain []*x509.Certificate) bool {
	if len(chain) == 0 {
		v.log.Debug("Rejecting empty certificate chain")
		return false
	}
	if len(chain) > v.maxChain {
		v.log.Debug("Rejecting certificate chain above length bound",
			slog.Int("length", len(chain)),
			slog.Int("max", v.maxChain))
		return false
	}

	now := time.Now()
	for i, cert := range chain {
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			v.log.Debug("Certificate outside validity window", slog.Int("index", i))
			return false
		}
	}

	for i := 0; i < len(chain)-1; i++ {
		if err := chain[i].CheckSignatureFrom(chain[i+1]); err != nil {
			v.log.Debug("Broken chain link", slog.Int("index", i), "err", err)
			return false
		}
	}

	if err := chain[len(chain)-1].CheckSignatureFrom(v.root); err != nil {
		v.log.Debug("Chain not rooted in trust anchor", "err", err)
		return false
	}

	// Coarse authority check on top of the cryptographic path.
	if chain[0].Issuer.CommonName != v.issuerName {
		v.log.Debug("Leaf issuer mismatch",
			slog.String("got", chain[0].Issuer.CommonName),
			slog.String("want", v.issuerName))
		return false
	}

	return true
}
