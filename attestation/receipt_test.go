package attestation

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestd/device-attestation-backend/interfaces"
)

func TestParseReceiptV2(t *testing.T) {
	want := bytes.Repeat([]byte{0xab}, 32)
	receipt, err := asn1.Marshal(receiptV2{Version: 2, DeviceID: want, KeyID: "device-key-1"})
	require.NoError(t, err)

	id, err := ParseReceipt(receipt, nil)
	require.NoError(t, err)
	assert.Equal(t, want, id.Bytes())
}

func TestParseReceiptV1(t *testing.T) {
	want := bytes.Repeat([]byte{0xcd}, 32)
	receipt, err := asn1.Marshal(receiptV1{DeviceID: want})
	require.NoError(t, err)

	id, err := ParseReceipt(receipt, nil)
	require.NoError(t, err)
	assert.Equal(t, want, id.Bytes())
}

func TestParseReceiptDeterministic(t *testing.T) {
	receipt, err := asn1.Marshal(receiptV2{Version: 2, DeviceID: bytes.Repeat([]byte{0x11}, 32), KeyID: "k"})
	require.NoError(t, err)

	first, err := ParseReceipt(receipt, nil)
	require.NoError(t, err)
	second, err := ParseReceipt(receipt, nil)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestParseReceiptFallsBackToLeafKeyID(t *testing.T) {
	root := newTestAuthority(t, "Test Attestation Root")
	ski := []byte{0x01, 0x02, 0x03, 0x04}
	leaf := root.issueLeaf(t, leafOpts{subjectKeyID: ski})

	id, err := ParseReceipt([]byte("not a DER sequence"), []*x509.Certificate{leaf})
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeDeviceID(ski), id)
}

func TestParseReceiptWrongVersionUsesFallback(t *testing.T) {
	root := newTestAuthority(t, "Test Attestation Root")
	ski := []byte{0x05, 0x06}
	leaf := root.issueLeaf(t, leafOpts{subjectKeyID: ski})

	receipt, err := asn1.Marshal(receiptV2{Version: 3, DeviceID: bytes.Repeat([]byte{0x22}, 32), KeyID: "k"})
	require.NoError(t, err)

	id, err := ParseReceipt(receipt, []*x509.Certificate{leaf})
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeDeviceID(ski), id)
}

func TestParseReceiptWrongDeviceIDLengthUsesFallback(t *testing.T) {
	root := newTestAuthority(t, "Test Attestation Root")
	ski := []byte{0x07}
	leaf := root.issueLeaf(t, leafOpts{subjectKeyID: ski})

	receipt, err := asn1.Marshal(receiptV2{Version: 2, DeviceID: bytes.Repeat([]byte{0x33}, 16), KeyID: "k"})
	require.NoError(t, err)

	id, err := ParseReceipt(receipt, []*x509.Certificate{leaf})
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeDeviceID(ski), id)
}

func TestParseReceiptFailsWithoutChain(t *testing.T) {
	_, err := ParseReceipt([]byte("garbage"), nil)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindReceiptParseError, interfaces.KindOf(err))
}

func TestParseReceiptFailsWithoutSubjectKeyID(t *testing.T) {
	root := newTestAuthority(t, "Test Attestation Root")
	leaf := root.issueLeaf(t, leafOpts{})

	_, err := ParseReceipt([]byte("garbage"), []*x509.Certificate{leaf})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindReceiptParseError, interfaces.KindOf(err))
}
