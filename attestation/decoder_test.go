package attestation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestd/device-attestation-backend/interfaces"
)

func validObject() Object {
	return Object{
		Format: ExpectedFormat,
		Statement: Statement{
			X5C:     [][]byte{{0x30, 0x00}},
			Receipt: []byte{0x01},
		},
		AuthData:       make([]byte, 64),
		ClientDataHash: make([]byte, 32),
	}
}

func TestDecodeRejectsMalformedBytes(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xfe, 0x00, 0x01})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindDecodeError, interfaces.KindOf(err))
}

func TestDecodeRoundTrip(t *testing.T) {
	raw := marshalAttestation(t, validObject())

	obj, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, ExpectedFormat, obj.Format)
	assert.Len(t, obj.AuthData, 64)
	require.NoError(t, obj.ValidateShape())
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Object)
		wantField string
	}{
		{
			name:      "wrong format tag",
			mutate:    func(o *Object) { o.Format = "tpm" },
			wantField: "format",
		},
		{
			name:      "empty certificate chain",
			mutate:    func(o *Object) { o.Statement.X5C = nil },
			wantField: "certificate_chain",
		},
		{
			name:      "missing receipt",
			mutate:    func(o *Object) { o.Statement.Receipt = nil },
			wantField: "receipt",
		},
		{
			name:      "short authenticator data",
			mutate:    func(o *Object) { o.AuthData = make([]byte, 63) },
			wantField: "authenticator_data",
		},
		{
			name:      "missing client data hash",
			mutate:    func(o *Object) { o.ClientDataHash = nil },
			wantField: "client_data_hash",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obj := validObject()
			tc.mutate(&obj)

			err := obj.ValidateShape()
			require.Error(t, err)
			assert.Equal(t, interfaces.KindFormatError, interfaces.KindOf(err))

			var perr *interfaces.PipelineError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.wantField, perr.Field)
		})
	}
}

func TestCertificatesRejectsGarbageDER(t *testing.T) {
	obj := validObject()
	obj.Statement.X5C = [][]byte{{0xde, 0xad, 0xbe, 0xef}}

	_, err := obj.Certificates()
	require.Error(t, err)
	assert.Equal(t, interfaces.KindDecodeError, interfaces.KindOf(err))
}

func TestCertificatesParsesRealChain(t *testing.T) {
	root := newTestAuthority(t, "Test Attestation Root")
	leaf := root.issueLeaf(t, leafOpts{subjectKeyID: []byte{1, 2, 3}})

	obj := validObject()
	obj.Statement.X5C = derChain(leaf)

	certs, err := obj.Certificates()
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, []byte{1, 2, 3}, certs[0].SubjectKeyId)
}
