package attestation

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Nonce layout inside authenticator data.
const (
	nonceOffset = 32
	nonceLength = 32
)

// Bind proves the attestation was produced in response to the given
// challenge: the 32-byte nonce at a fixed offset of the authenticator data
// must equal SHA-256(challenge). The comparison is constant time.
//
// Missing or too-short authenticator data and empty challenges yield false,
// never true.
func Bind(authData, challenge []byte) bool {
	if len(authData) < nonceOffset+nonceLength {
		return false
	}
	if len(challenge) == 0 {
		return false
	}

	expected := sha256.Sum256(challenge)
	return subtle.ConstantTimeCompare(authData[nonceOffset:nonceOffset+nonceLength], expected[:]) == 1
}
