// Package apperr defines the sentinel errors returned by the aes256 filter
// core, per the error taxonomy of the streaming encryption filter.
package apperr

import "errors"

// Sentinel errors for the filter's error taxonomy. Each is returned (never
// panicked) from the layer that first detects the condition, and is safe to
// compare with errors.Is across wrapping.
var (
	// ErrBadConfig is returned when cfgdata has a length other than 16, 17
	// or 96 bytes, and for malformed key, plaintext-block or fingerprint
	// sizes. No crypto-library version check is made.
	ErrBadConfig = errors.New("aes256: bad config data")
	// ErrKDFFailed is returned when the underlying password-hashing
	// primitive fails.
	ErrKDFFailed = errors.New("aes256: key derivation failed")
	// ErrBadPassword is returned when a candidate key's fingerprint does
	// not match the fingerprint recorded for the volume.
	ErrBadPassword = errors.New("aes256: bad password")
	// ErrAuthFailed is returned when a block's HMAC does not verify.
	ErrAuthFailed = errors.New("aes256: block authentication failed")
	// ErrDecryptFailed is returned when AES finalisation fails, e.g. bad
	// padding or a truncated block.
	ErrDecryptFailed = errors.New("aes256: block decryption failed")
	// ErrRNGFailed is returned when salt or fingerprint-salt generation
	// fails.
	ErrRNGFailed = errors.New("aes256: random generation failed")
	// ErrIOWarning names the non-fatal key-cache read/write failure class.
	// Session setup logs such failures as warnings and continues without
	// the cache; it does not return or wrap this sentinel.
	ErrIOWarning = errors.New("aes256: key cache I/O warning")
	// ErrOOM names the allocation-failure class of the taxonomy. No
	// function in this module returns it; allocation failures are not
	// intercepted.
	ErrOOM = errors.New("aes256: allocation failed")
	// ErrPasswordTooShort is returned when a prompted password is shorter
	// than the 8-character minimum.
	ErrPasswordTooShort = errors.New("aes256: password too short")
	// ErrPasswordMismatch is returned when a double-entry password prompt
	// does not match.
	ErrPasswordMismatch = errors.New("aes256: password confirmation mismatch")
)

// Errs lists every sentinel this package defines, for completeness tests
// and for callers that want to classify "is this one of ours".
var Errs = []error{
	ErrBadConfig,
	ErrKDFFailed,
	ErrBadPassword,
	ErrAuthFailed,
	ErrDecryptFailed,
	ErrRNGFailed,
	ErrIOWarning,
	ErrOOM,
	ErrPasswordTooShort,
	ErrPasswordMismatch,
}

// IsAppErr reports whether target is one of the sentinels in Errs (or wraps
// one of them).
func IsAppErr(target error) bool {
	if target == nil {
		return false
	}

	return ContainsError(Errs, target)
}

// ContainsError reports whether target matches (via errors.Is) any error in
// errs.
func ContainsError(errs []error, target error) bool {
	if target == nil {
		return false
	}

	for _, err := range errs {
		if errors.Is(target, err) {
			return true
		}
	}

	return false
}
