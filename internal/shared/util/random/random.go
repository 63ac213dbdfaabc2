// Package random provides a thin, testable wrapper around crypto/rand for
// the byte-slice sizes the aes256 filter needs: config salts and
// fingerprint salts.
package random

import (
	"crypto/rand"
	"fmt"

	"aes256filter/internal/shared/apperr"
)

// Bytes returns n cryptographically random bytes. n must be at least 1.
func Bytes(n int) ([]byte, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: byte count can't be less than 1", apperr.ErrRNGFailed)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrRNGFailed, err)
	}

	return buf, nil
}
