// Package signature wraps the opaque "verify signature over message"
// capability consumed by settlement collaborators. The scheme is ed25519 over
// a SHA3-256 message digest; callers never deal with curve details.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// MessageHash returns the SHA3-256 digest signed by the parties.
func MessageHash(message []byte) [32]byte {
	return sha3.Sum256(message)
}

// AddressOf derives the ledger address for a public key: the hex-encoded
// SHA3-256 of the key bytes.
func AddressOf(pub ed25519.PublicKey) domain.Address {
	sum := sha3.Sum256(pub)
	return domain.Address("0x" + hex.EncodeToString(sum[:20]))
}

// Sign produces a signature over the message digest.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	digest := MessageHash(message)
	return ed25519.Sign(priv, digest[:])
}

// Verify checks a signature over message against pub. A malformed signature
// length is a BadRequest, not a verification failure.
func Verify(pub ed25519.PublicKey, message, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return dErrors.Newf(dErrors.CodeBadRequest, "malformed signature: %d bytes", len(sig))
	}
	digest := MessageHash(message)
	if !ed25519.Verify(pub, digest[:], sig) {
		return dErrors.New(dErrors.CodeUnauthorized, "signature does not match signer")
	}
	return nil
}

// SignerOf returns the address of the candidate key that produced sig, or an
// Unauthorized error when the signature matches none of the candidates. This
// stands in for curve-native signer recovery.
func SignerOf(message, sig []byte, candidates []ed25519.PublicKey) (domain.Address, error) {
	for _, pub := range candidates {
		if err := Verify(pub, message, sig); err == nil {
			return AddressOf(pub), nil
		}
	}
	return domain.ZeroAddress, dErrors.New(dErrors.CodeUnauthorized, "signer not among candidates")
}
