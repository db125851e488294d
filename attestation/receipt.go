package attestation

import (
	"crypto/x509"
	"encoding/asn1"
	"errors"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// Receipt schema variants, tried in priority order. Both are DER SEQUENCEs;
// the leading element type makes them mutually unambiguous.
type receiptV2 struct {
	Version  int
	DeviceID []byte
	KeyID    string `asn1:"utf8"`
}

type receiptV1 struct {
	DeviceID []byte
}

const receiptV2Version = 2

// ParseReceipt extracts a stable device identifier from the attestation's
// receipt, falling back to a deterministic derivation from the leaf
// certificate's key identifier when no schema variant decodes.
//
// For a given device/key the result is always identical; it is never random
// and never a placeholder. Returns KindReceiptParseError when no variant
// decodes and no fallback derivation is possible.
func ParseReceipt(receipt []byte, chain []*x509.Certificate) (interfaces.DeviceID, error) {
	if id, ok := parseReceiptV2(receipt); ok {
		return id, nil
	}
	if id, ok := parseReceiptV1(receipt); ok {
		return id, nil
	}
	return fallbackDeviceID(chain)
}

func parseReceiptV2(receipt []byte) (interfaces.DeviceID, bool) {
	var rec receiptV2
	rest, err := asn1.Unmarshal(receipt, &rec)
	if err != nil || len(rest) != 0 {
		return interfaces.DeviceID{}, false
	}
	if rec.Version != receiptV2Version {
		return interfaces.DeviceID{}, false
	}

	id, err := interfaces.NewDeviceIDFromBytes(rec.DeviceID)
	if err != nil {
		return interfaces.DeviceID{}, false
	}
	return id, true
}

func parseReceiptV1(receipt []byte) (interfaces.DeviceID, bool) {
	var rec receiptV1
	rest, err := asn1.Unmarshal(receipt, &rec)
	if err != nil || len(rest) != 0 {
		return interfaces.DeviceID{}, false
	}

	id, err := interfaces.NewDeviceIDFromBytes(rec.DeviceID)
	if err != nil {
		return interfaces.DeviceID{}, false
	}
	return id, true
}

// fallbackDeviceID hashes the leaf certificate's subject key identifier.
// The input is stable across attestations from the same key, so repeated
// verifications keep yielding the same device ID.
func fallbackDeviceID(chain []*x509.Certificate) (interfaces.DeviceID, error) {
	if len(chain) == 0 {
		return interfaces.DeviceID{}, interfaces.NewPipelineError(interfaces.KindReceiptParseError,
			errors.New("no receipt variant decoded and no leaf certificate for fallback derivation"))
	}

	ski := chain[0].SubjectKeyId
	if len(ski) == 0 {
		return interfaces.DeviceID{}, interfaces.NewPipelineError(interfaces.KindReceiptParseError,
			errors.New("no receipt variant decoded and leaf certificate carries no subject key identifier"))
	}

	return interfaces.ComputeDeviceID(ski), nil
}
