package attestation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindAcceptsMatchingChallenge(t *testing.T) {
	challenge := []byte("thirty-two-bytes-of-challenge-xx")
	assert.True(t, Bind(makeAuthData(challenge), challenge))
}

func TestBindRejectsWrongChallenge(t *testing.T) {
	authData := makeAuthData([]byte("the challenge the device signed"))
	assert.False(t, Bind(authData, []byte("a different challenge entirely")))
}

func TestBindRejectsShortAuthData(t *testing.T) {
	challenge := []byte("some challenge")
	assert.False(t, Bind(make([]byte, 63), challenge))
	assert.False(t, Bind(nil, challenge))
}

func TestBindRejectsEmptyChallenge(t *testing.T) {
	// An empty challenge must never bind, even if the authenticator data
	// happens to carry SHA-256 of the empty string.
	authData := makeAuthData(nil)
	assert.False(t, Bind(authData, nil))
	assert.False(t, Bind(authData, []byte{}))
}
