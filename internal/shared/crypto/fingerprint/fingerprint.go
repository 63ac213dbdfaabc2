// Package fingerprint implements spec.md §4.2: a salted proof that a
// candidate session key matches the key a volume was originally sealed
// with, without ever persisting the key itself.
package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"aes256filter/internal/shared/apperr"
	"aes256filter/internal/shared/crypto/password"
	"aes256filter/internal/shared/util/random"
)

// SaltSize is the size, in bytes, of the fingerprint's own salt (fp_salt).
// It is independent of the config salt used for the main key derivation.
const SaltSize = 16

// DigestSize is the size, in bytes, of the derived fingerprint digest.
const DigestSize = 64

// Size is the total on-wire size of a fingerprint: fp_salt || fp_digest.
const Size = SaltSize + DigestSize

// Create produces a fresh fingerprint for key: a random fp_salt, and a
// digest obtained by key-deriving the hex-encoded SHA-256 of key under
// that salt. Emits fp_salt ‖ fp_digest.
func Create(key [64]byte) ([]byte, error) {
	fpSalt, err := random.Bytes(SaltSize)
	if err != nil {
		return nil, err
	}

	digest, err := deriveDigest(key, fpSalt)
	if err != nil {
		return nil, err
	}

	fp := make([]byte, 0, Size)
	fp = append(fp, fpSalt...)
	fp = append(fp, digest[:]...)

	return fp, nil
}

// Verify recomputes the fingerprint digest for key using the salt embedded
// in currentFP and compares it, in constant time, against the digest
// embedded in currentFP. Returns apperr.ErrBadPassword on mismatch.
func Verify(key [64]byte, currentFP []byte) error {
	if len(currentFP) != Size {
		return fmt.Errorf("%w: fingerprint must be %d bytes, got %d", apperr.ErrBadConfig, Size, len(currentFP))
	}

	fpSalt := currentFP[:SaltSize]
	expectedDigest := currentFP[SaltSize:]

	digest, err := deriveDigest(key, fpSalt)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(digest[:], expectedDigest) != 1 {
		return apperr.ErrBadPassword
	}

	return nil
}

// deriveDigest is the shared Create/Verify step: hex(SHA-256(key)) run
// through the password KDF keyed on fpSalt.
func deriveDigest(key [64]byte, fpSalt []byte) ([64]byte, error) {
	sum := sha256.Sum256(key[:])
	hexDigest := hex.EncodeToString(sum[:]) // 64 ASCII chars

	digest, err := password.DeriveKey(hexDigest, fpSalt)
	if err != nil {
		return [64]byte{}, err
	}

	return digest, nil
}
