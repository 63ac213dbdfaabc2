// Package blockcodec implements spec.md §4.4: per-block encrypt-then-MAC
// and MAC-verify-then-decrypt, with a deterministic chained-IV generator
// that needs no CSPRNG call per block.
package blockcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // used only as the chained-IV PRF, per spec.md §3/§9; never for the block MAC
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"aes256filter/internal/shared/apperr"
)

const (
	// FilterBlockSize is the upload-side plaintext framing unit.
	FilterBlockSize = 16384
	// IVSize is the width of the per-block IV carried on the wire.
	IVSize = 16
	// AESBlockSize is the AES block size (and the padding granularity).
	AESBlockSize = 16
	// MACSize is the truncated HMAC-SHA-512 tag width.
	MACSize = 32
	// IVMacSize is the full width of the chained-IV accumulator: a raw
	// HMAC-SHA-1 output.
	IVMacSize = sha1.Size
	// FramedBlockSize is the size of one fully framed download-side block:
	// IV ‖ ciphertext(FilterBlockSize+AESBlockSize) ‖ MAC.
	FramedBlockSize = IVSize + FilterBlockSize + AESBlockSize + MACSize
	// MaxCiphertextSize is the largest ciphertext a single block may carry.
	MaxCiphertextSize = FilterBlockSize + AESBlockSize
)

// IVMac is the chained-IV accumulator: the previous block's IV-HMAC
// output, full width. Its zero value is the required all-zero seed
// (spec.md §9 — fixed, not random, part of the wire format).
type IVMac [IVMacSize]byte

// Codec holds the two keyed primitives derived from one session key: the
// chained-IV PRF (HMAC-SHA-1) and the block MAC (HMAC-SHA-512), plus the
// AES-256 block cipher. Every field is session-scoped; there is no
// package-level mutable crypto state.
type Codec struct {
	hmacKey []byte
	block   cipher.Block
}

// New builds a Codec from the two key halves described in spec.md §3:
// hmacKey is key[0:32], aesKey is key[32:64].
func New(hmacKey, aesKey []byte) (*Codec, error) {
	if len(hmacKey) != 32 {
		return nil, fmt.Errorf("%w: hmac key must be 32 bytes, got %d", apperr.ErrBadConfig, len(hmacKey))
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrBadConfig, err)
	}

	return &Codec{hmacKey: append([]byte(nil), hmacKey...), block: block}, nil
}

// EncryptBlock implements spec.md §4.4.1. plaintext must be at most
// FilterBlockSize bytes. Returns the framed block (iv ‖ ciphertext ‖ mac)
// and the updated chained-IV accumulator.
func (c *Codec) EncryptBlock(plaintext []byte, ivMac IVMac) ([]byte, IVMac, error) {
	if len(plaintext) > FilterBlockSize {
		return nil, ivMac, fmt.Errorf("%w: plaintext block too large: %d bytes", apperr.ErrBadConfig, len(plaintext))
	}

	m := hmac.New(sha1.New, c.hmacKey)
	m.Write(ivMac[:])
	m.Write(plaintext)

	var newIVMac IVMac
	copy(newIVMac[:], m.Sum(nil))

	iv := newIVMac[:IVSize]

	ciphertext, err := c.cbcEncryptPadded(iv, plaintext)
	if err != nil {
		return nil, ivMac, err
	}

	mac := c.blockMAC(iv, ciphertext)

	framed := make([]byte, 0, len(iv)+len(ciphertext)+len(mac))
	framed = append(framed, iv...)
	framed = append(framed, ciphertext...)
	framed = append(framed, mac...)

	return framed, newIVMac, nil
}

// DecryptBlock implements spec.md §4.4.2. framed must be at least
// IVSize+AESBlockSize+MACSize bytes and its ciphertext portion must be a
// multiple of AESBlockSize. Decryption never updates the chained-IV
// accumulator: the chaining is producer-side only.
func (c *Codec) DecryptBlock(framed []byte) ([]byte, error) {
	if len(framed) < IVSize+AESBlockSize+MACSize {
		return nil, fmt.Errorf("%w: framed block too short: %d bytes", apperr.ErrDecryptFailed, len(framed))
	}

	iv := framed[:IVSize]
	ciphertext := framed[IVSize : len(framed)-MACSize]
	mac := framed[len(framed)-MACSize:]

	if len(ciphertext)%AESBlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: ciphertext not block-aligned: %d bytes", apperr.ErrDecryptFailed, len(ciphertext))
	}

	expectedMAC := c.blockMAC(iv, ciphertext)
	if !hmacCompare(expectedMAC, mac) {
		return nil, apperr.ErrAuthFailed
	}

	plaintext, err := c.cbcDecryptPadded(iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDecryptFailed, err)
	}

	return plaintext, nil
}

func (c *Codec) blockMAC(iv, ciphertext []byte) []byte {
	m := hmac.New(sha512.New, c.hmacKey)
	m.Write(iv)
	m.Write(ciphertext)
	full := m.Sum(nil)

	return full[:MACSize] // truncate to half of SHA-512, per spec.md §9.
}

// hmacCompare runs in time independent of the position of the first
// differing byte (spec.md §8 invariant 7, §9's note that its boolean
// result is all that matters despite the original's int return type).
func hmacCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	return subtle.ConstantTimeCompare(a, b) == 1
}

func (c *Codec) cbcEncryptPadded(iv, plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, AESBlockSize)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

func (c *Codec) cbcDecryptPadded(iv, ciphertext []byte) ([]byte, error) {
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded)
}

// pkcs7Pad always adds at least one byte of padding, per spec.md §4.4.1: a
// plaintext that is already block-aligned still gets a full padding block.
func pkcs7Pad(plaintext []byte, blockSize int) []byte {
	padLen := blockSize - len(plaintext)%blockSize

	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)

	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	return padded
}

func pkcs7Unpad(padded []byte) ([]byte, error) {
	if len(padded) == 0 || len(padded)%AESBlockSize != 0 {
		return nil, fmt.Errorf("padded length %d is not a positive multiple of %d", len(padded), AESBlockSize)
	}

	padLen := int(padded[len(padded)-1])
	if padLen == 0 || padLen > AESBlockSize || padLen > len(padded) {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}

	for _, b := range padded[len(padded)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid padding bytes")
		}
	}

	return padded[:len(padded)-padLen], nil
}
