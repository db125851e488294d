// Package attestation implements the device attestation verification
// pipeline: decoding the vendor attestation container, validating its
// certificate chain against a trusted root, binding it to a server-issued
// challenge, and deriving a stable device identifier from the receipt.
//
// Every stage fails closed. There is no bypass path: a failure at any stage
// terminates the pipeline for that request, and registry writes happen only
// after every check has succeeded.
package attestation

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// DefaultMaxChainLength bounds the number of certificates accepted in an
// attestation chain.
const DefaultMaxChainLength = 5

// Config holds the static trust configuration for the pipeline. It is
// constructed once at process startup and passed by reference into each
// component; there is no process-wide state.
type Config struct {
	// TrustedRoot anchors certificate chain validation.
	TrustedRoot *x509.Certificate

	// IssuerName is matched against the leaf certificate's issuer common
	// name.
	IssuerName string

	// MaxChainLength bounds accepted chain length.
	MaxChainLength int
}

// NewConfig parses and validates the trusted root from PEM data. It fails
// fast on malformed input so a misconfigured process never starts serving.
func NewConfig(trustedRootPEM []byte, issuerName string, maxChainLength int) (*Config, error) {
	block, _ := pem.Decode(trustedRootPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("invalid trusted root: not in PEM format or not a certificate")
	}

	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted root structure: %w", err)
	}

	if issuerName == "" {
		return nil, errors.New("issuer name must not be empty")
	}

	if maxChainLength <= 0 {
		maxChainLength = DefaultMaxChainLength
	}

	return &Config{
		TrustedRoot:    root,
		IssuerName:     issuerName,
		MaxChainLength: maxChainLength,
	}, nil
}
