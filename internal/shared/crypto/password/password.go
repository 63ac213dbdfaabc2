// Package password implements the filter's key-derivation primitive
// (spec.md §4.1): password + salt -> 64-byte master key, via a slow
// password-hashing step followed by SHA-512 normalisation.
package password

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"aes256filter/internal/shared/apperr"
)

// Cost is the bcrypt-family cost factor: 2^Cost key-schedule rounds.
const Cost = 14

// bcryptMagic is the fixed 24-byte string bcrypt encrypts repeatedly to
// whiten its key schedule into a digest ("OrpheanBeholderScryDoubt", three
// 8-byte Blowfish blocks).
const bcryptMagic = "OrpheanBeholderScryDoubt"

const bcryptRounds = 64

// MinLength is the minimum accepted password length (spec.md §4.3.2).
const MinLength = 8

// DeriveKey implements derive_key(password, salt) -> 64 bytes.
//
// It runs (password, salt) through the same expensive Eksblowfish key
// schedule golang.org/x/crypto/bcrypt uses internally — blowfish.NewSaltedCipher
// followed by blowfish.ExpandKey looped 2^Cost times — encrypts the fixed
// bcrypt whitening string to get a digest, and assembles a bcrypt-style
// textual hash ("$2a$<cost>$<salt>$<digest>", salt and digest in unpadded
// standard base64; not byte-identical to bcrypt's own encoding). The
// 64-byte derived key is SHA-512 of that *textual* hash, never of the raw
// digest: this is what stops an implementation from ever using the visible
// salt portion of the hash as key material (spec.md §4.1).
//
// x/crypto/bcrypt itself does not expose a variant that accepts a
// caller-supplied salt (GenerateFromPassword always draws its own from
// crypto/rand), yet the filter must re-derive byte-identical keys from the
// same (password, salt) pair across sessions. Reimplementing the key
// schedule directly on top of the public blowfish.NewSaltedCipher/
// ExpandKey primitives — the same building blocks bcrypt itself is built
// from — gives a deterministic, bcrypt-family-compatible KDF without
// vendoring or forking golang.org/x/crypto/bcrypt.
func DeriveKey(password string, salt []byte) ([64]byte, error) {
	var key [64]byte

	if len(password) == 0 {
		return key, fmt.Errorf("%w: password can't be empty", apperr.ErrKDFFailed)
	}

	if len(salt) == 0 {
		return key, fmt.Errorf("%w: salt can't be empty", apperr.ErrKDFFailed)
	}

	hashText, err := bcryptHash([]byte(password), salt, Cost)
	if err != nil {
		return key, fmt.Errorf("%w: %w", apperr.ErrKDFFailed, err)
	}

	return sha512.Sum512([]byte(hashText)), nil
}

func bcryptHash(password, salt []byte, cost int) (string, error) {
	if cost < 4 || cost > 31 {
		return "", fmt.Errorf("cost %d out of range", cost)
	}

	key := append(append([]byte{}, password...), 0) // NUL-terminated, bcrypt-style

	cipher, err := blowfish.NewSaltedCipher(key, salt)
	if err != nil {
		return "", fmt.Errorf("eksblowfish setup: %w", err)
	}

	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(key, cipher)
		blowfish.ExpandKey(salt, cipher)
	}

	digest := []byte(bcryptMagic)
	out := make([]byte, len(digest))
	copy(out, digest)

	for round := 0; round < bcryptRounds; round++ {
		for block := 0; block < len(out); block += 8 {
			cipher.Encrypt(out[block:block+8], out[block:block+8])
		}
	}

	return fmt.Sprintf("$2a$%02d$%s$%s", cost,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(out)), nil
}
