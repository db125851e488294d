package attestation

import (
	"crypto/x509"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// ExpectedFormat is the only attestation format tag accepted by the
// pipeline.
const ExpectedFormat = "app-attest"

// minAuthDataLength covers the fixed authenticator data layout up to and
// including the 32-byte nonce at offset 32.
const minAuthDataLength = 64

// Statement carries the certificate chain and receipt embedded in the
// attestation container.
type Statement struct {
	// X5C is the DER certificate chain, leaf first.
	X5C [][]byte `cbor:"x5c"`

	// Receipt is the binary record the device identifier derives from.
	Receipt []byte `cbor:"receipt"`
}

// Object is the decoded attestation container. The schema is explicit and
// tagged; unknown fields are ignored, never probed.
type Object struct {
	Format         string    `cbor:"fmt"`
	Statement      Statement `cbor:"attStmt"`
	AuthData       []byte    `cbor:"authData"`
	ClientDataHash []byte    `cbor:"clientDataHash"`
}

// Decode deserializes the binary attestation container. Returns a
// KindDecodeError when the bytes are not well-formed CBOR.
func Decode(raw []byte) (*Object, error) {
	var obj Object
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, interfaces.NewPipelineError(interfaces.KindDecodeError, fmt.Errorf("malformed attestation container: %w", err))
	}
	return &obj, nil
}

// ValidateShape checks that every required field is present before any
// cryptographic work happens. Returns a KindFormatError naming the first
// missing field.
func (o *Object) ValidateShape() error {
	if o.Format != ExpectedFormat {
		return interfaces.NewFormatError("format")
	}
	if len(o.Statement.X5C) == 0 {
		return interfaces.NewFormatError("certificate_chain")
	}
	if len(o.Statement.Receipt) == 0 {
		return interfaces.NewFormatError("receipt")
	}
	if len(o.AuthData) < minAuthDataLength {
		return interfaces.NewFormatError("authenticator_data")
	}
	if len(o.ClientDataHash) == 0 {
		return interfaces.NewFormatError("client_data_hash")
	}
	return nil
}

// Certificates parses the embedded DER chain, leaf first. A certificate
// that does not parse makes the whole request malformed.
func (o *Object) Certificates() ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(o.Statement.X5C))
	for i, der := range o.Statement.X5C {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, interfaces.NewPipelineError(interfaces.KindDecodeError, fmt.Errorf("certificate %d does not parse: %w", i, err))
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
