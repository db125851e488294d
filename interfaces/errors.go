package interfaces

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a verification or issuance failure. Kinds are the
// only failure detail exposed to clients; underlying errors stay server-side.
type ErrorKind string

const (
	// KindDecodeError indicates a malformed binary attestation container.
	KindDecodeError ErrorKind = "DecodeError"

	// KindFormatError indicates a well-formed container missing a required
	// field. The missing field is named in the error.
	KindFormatError ErrorKind = "FormatError"

	// KindChainError indicates a broken trust path: expired certificate,
	// unverifiable link, untrusted root, or issuer mismatch.
	KindChainError ErrorKind = "ChainError"

	// KindChallengeMismatch indicates the attestation nonce does not bind
	// to the presented challenge.
	KindChallengeMismatch ErrorKind = "ChallengeMismatchError"

	// KindReceiptParseError indicates no receipt schema variant decoded and
	// no deterministic fallback derivation was possible.
	KindReceiptParseError ErrorKind = "ReceiptParseError"

	// KindUnauthorizedDevice indicates credential issuance was requested
	// for a device that never passed verification.
	KindUnauthorizedDevice ErrorKind = "UnauthorizedDevice"

	// KindInvalidSignature indicates a credential whose signature does not
	// verify.
	KindInvalidSignature ErrorKind = "InvalidSignature"

	// KindExpired indicates a credential past its expiry.
	KindExpired ErrorKind = "Expired"
)

// String returns the wire representation of the kind.
func (k ErrorKind) String() string {
	return string(k)
}

// ClientError reports whether the kind indicates a malformed request, as
// opposed to a well-formed but untrustworthy one.
func (k ErrorKind) ClientError() bool {
	return k == KindDecodeError || k == KindFormatError
}

// PipelineError carries an error kind through the verification pipeline.
// The wrapped error holds server-side diagnostic detail and is never sent
// to clients.
type PipelineError struct {
	Kind  ErrorKind
	Field string // set for KindFormatError: the missing field
	Err   error
}

// Error returns the full server-side message.
func (e *PipelineError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: missing field %q", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a kind.
func NewPipelineError(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// NewFormatError reports a missing required attestation field by name.
func NewFormatError(field string) *PipelineError {
	return &PipelineError{Kind: KindFormatError, Field: field}
}

// KindOf extracts the error kind from err, or empty string if err carries
// no kind.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
