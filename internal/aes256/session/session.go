// Package session implements spec.md §4.3: reconciling host-supplied
// config bytes, a local cached key file, and interactive password input
// into an established session key, with fingerprint persistence via the
// host's custom-meta store.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"aes256filter/internal/aes256/hostio"
	"aes256filter/internal/aes256/mode"
	"aes256filter/internal/shared/apperr"
	"aes256filter/internal/shared/crypto/blockcodec"
	"aes256filter/internal/shared/crypto/fingerprint"
	"aes256filter/internal/shared/crypto/password"
	"aes256filter/internal/shared/memlock"
)

const (
	// SaltSize is the size of the config salt (spec.md §3).
	SaltSize = 16

	// cfgDataParanoidLen is the length of a paranoid-mode cfgdata: salt only.
	cfgDataParanoidLen = SaltSize
	// cfgDataNogenkeyLen is the length of a nogenkey-mode cfgdata: salt ‖ one marker byte.
	cfgDataNogenkeyLen = SaltSize + 1
	// cfgDataNormalLen is the length of a normal-mode cfgdata: salt ‖ fingerprint.
	cfgDataNormalLen = SaltSize + fingerprint.Size

	// metaFingerprintKey is the custom-meta key the fingerprint is published under.
	metaFingerprintKey = "aes256_fp"

	// keyCacheFile is the local key-cache file name inside cfgdir.
	keyCacheFile = "key"
	// custFPFile is the last-seen custom-meta snapshot file name inside cfgdir.
	custFPFile = "custfp"

	// maxPromptAttempts bounds the "re-prompt until correct or the user
	// aborts" loops of spec.md §4.3.2: this implementation has no
	// interactive abort channel, so it aborts (returns an error) after
	// this many failed attempts instead of prompting forever.
	maxPromptAttempts = 3
)

// keyFileMode is the permission the key cache and custfp snapshot are
// written with (spec.md §3: "mode 0600").
const keyFileMode = 0o600

// classification of reconciled cfgdata, by length (spec.md §4.3.2).
type keyClass int

const (
	classParanoid keyClass = iota
	classNogenkey
	classNormal
)

// Params are the inputs to Setup, mirroring spec.md §4.3's contract.
type Params struct {
	Mode       mode.Mode
	Filename   string // cosmetic only
	CfgData    []byte // optional: nil or empty means absent
	CfgDir     hostio.ConfigDir
	CustomMeta hostio.MetaStore
	Logger     hostio.Logger
	Prompter   hostio.PasswordPrompter
}

// Established is a successfully constructed session: the key (guarded
// against paging) and a Codec built from its two halves, per spec.md
// §4.3.3.
type Established struct {
	Codec *blockcodec.Codec

	keyGuard *memlock.Guard
}

// Key returns the 64-byte session key. The returned slice aliases the
// guarded buffer and must not be retained past Destroy.
func (e *Established) Key() []byte {
	return e.keyGuard.Bytes()
}

// Destroy zeroises and releases the session key. Safe to call once, on
// every exit path, even after Setup returned an error result for cleanup
// purposes.
func (e *Established) Destroy() {
	if e == nil {
		return
	}

	e.keyGuard.Release()
}

// Setup implements spec.md §4.3: custom-meta reconciliation, key-source
// classification, key-cache / prompt flow, and cipher/HMAC state
// initialisation.
func Setup(p Params) (*Established, error) {
	cfgData, err := reconcileCustomMeta(p)
	if err != nil {
		return nil, err
	}

	class, salt, fp, err := classify(cfgData)
	if err != nil {
		return nil, err
	}

	key, err := resolveKey(p, class, salt, fp)
	if err != nil {
		return nil, err
	}

	keyGuard := memlock.Acquire(key[:], p.Logger)

	codec, err := blockcodec.New(keyGuard.Bytes()[:32], keyGuard.Bytes()[32:])
	if err != nil {
		keyGuard.Release()
		return nil, err
	}

	return &Established{Codec: codec, keyGuard: keyGuard}, nil
}

// reconcileCustomMeta implements spec.md §4.3.1: when cfgdata is absent or
// is the 17-byte nogenkey marker, a custom-meta fingerprint record (if
// present) substitutes for it, and a change in that record versus the
// cfgdir/custfp snapshot invalidates the local key cache.
func reconcileCustomMeta(p Params) ([]byte, error) {
	cfgData := p.CfgData

	if len(cfgData) != 0 && len(cfgData) != cfgDataNogenkeyLen {
		return cfgData, nil
	}

	metaFP, ok := p.CustomMeta.Get(metaFingerprintKey)
	if !ok {
		return cfgData, nil
	}

	cfgData = metaFP

	cached, err := p.CfgDir.ReadFile(custFPFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if writeErr := p.CfgDir.WriteFile(custFPFile, metaFP, keyFileMode); writeErr != nil {
			logWarning(p.Logger, "could not create custfp cache", writeErr)
		}
	case err != nil:
		logWarning(p.Logger, "could not read custfp cache", err)
	case !bytes.Equal(cached, metaFP):
		logNotice(p.Logger, "volume password change detected")

		if rmErr := p.CfgDir.Remove(custFPFile); rmErr != nil {
			logWarning(p.Logger, "could not remove stale custfp cache", rmErr)
		}

		if rmErr := p.CfgDir.Remove(keyCacheFile); rmErr != nil {
			logWarning(p.Logger, "could not remove stale key cache", rmErr)
		}

		if writeErr := p.CfgDir.WriteFile(custFPFile, metaFP, keyFileMode); writeErr != nil {
			logWarning(p.Logger, "could not refresh custfp cache", writeErr)
		}
	}

	return cfgData, nil
}

// classify implements spec.md §4.3.2's length-based dispatch.
func classify(cfgData []byte) (keyClass, []byte, []byte, error) {
	switch len(cfgData) {
	case cfgDataParanoidLen:
		return classParanoid, cfgData[:SaltSize], nil, nil
	case cfgDataNogenkeyLen:
		return classNogenkey, cfgData[:SaltSize], nil, nil
	case cfgDataNormalLen:
		return classNormal, cfgData[:SaltSize], cfgData[SaltSize:], nil
	default:
		return 0, nil, nil, fmt.Errorf("%w: cfgdata length %d is not 16, 17 or 96", apperr.ErrBadConfig, len(cfgData))
	}
}

// resolveKey implements the cache/prompt branches of spec.md §4.3.2.
func resolveKey(p Params, class keyClass, salt, fp []byte) ([64]byte, error) {
	var zero [64]byte

	if class != classParanoid {
		if cached, ok := readKeyCache(p); ok {
			return cached, nil
		}
	}

	key, err := promptAndDerive(p, class, salt, fp)
	if err != nil {
		return zero, err
	}

	if class != classParanoid {
		writeKeyCache(p, key)
	}

	return key, nil
}

func readKeyCache(p Params) ([64]byte, bool) {
	var key [64]byte

	data, err := p.CfgDir.ReadFile(keyCacheFile)
	if err != nil {
		return key, false
	}

	if len(data) != 64 {
		logWarning(p.Logger, "key cache has unexpected length, ignoring", fmt.Errorf("got %d bytes", len(data)))
		return key, false
	}

	copy(key[:], data)

	return key, true
}

func writeKeyCache(p Params, key [64]byte) {
	if err := p.CfgDir.WriteFile(keyCacheFile, key[:], keyFileMode); err != nil {
		logWarning(p.Logger, "could not write key cache, continuing without it", err)

		if rmErr := p.CfgDir.Remove(keyCacheFile); rmErr != nil {
			logWarning(p.Logger, "could not remove partial key cache", rmErr)
		}
	}
}

// promptAndDerive implements the password-prompt rules of spec.md §4.3.2
// and, when a fresh fingerprint must be minted, publishes it to custom_meta.
func promptAndDerive(p Params, class keyClass, salt, fp []byte) ([64]byte, error) {
	var zero [64]byte

	hasFP := class == classNormal

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		pw, err := readPassword(p, class, hasFP)
		if err != nil {
			if attempt > 0 {
				// the previous entry was rejected by the fingerprint check.
				return zero, fmt.Errorf("%w: %w", apperr.ErrBadPassword, err)
			}

			return zero, err
		}

		pwGuard := memlock.Acquire([]byte(pw), p.Logger)

		key, deriveErr := password.DeriveKey(string(pwGuard.Bytes()), salt)

		pwGuard.Release()

		if deriveErr != nil {
			return zero, deriveErr
		}

		if !hasFP {
			if class != classParanoid {
				if genErr := mintFingerprint(p, salt, key); genErr != nil {
					return zero, genErr
				}
			}

			return key, nil
		}

		verifyErr := fingerprint.Verify(key, fp)
		if verifyErr == nil {
			return key, nil
		}

		if !errors.Is(verifyErr, apperr.ErrBadPassword) {
			return zero, verifyErr
		}

		logWarning(p.Logger, "password did not match volume fingerprint", verifyErr)
	}

	return zero, apperr.ErrBadPassword
}

// readPassword implements the single/double-entry rule: double entry only
// for an upload session establishing a brand-new fingerprint; a single
// prompt in every other case, including paranoid mode.
func readPassword(p Params, class keyClass, hasFP bool) (string, error) {
	doubleEntry := class == classNogenkey && !hasFP && p.Mode == mode.Upload

	pw, err := promptOnce(p, "Password")
	if err != nil {
		return "", err
	}

	if !doubleEntry {
		return pw, nil
	}

	confirm, err := promptOnce(p, "Confirm password")
	if err != nil {
		return "", err
	}

	if pw != confirm {
		return "", apperr.ErrPasswordMismatch
	}

	return pw, nil
}

func promptOnce(p Params, label string) (string, error) {
	pw, err := p.Prompter.Prompt(label)
	if err != nil {
		return "", fmt.Errorf("prompting for password: %w", err)
	}

	if len(pw) < password.MinLength {
		return "", fmt.Errorf("%w: minimum length is %d", apperr.ErrPasswordTooShort, password.MinLength)
	}

	return pw, nil
}

func mintFingerprint(p Params, salt []byte, key [64]byte) error {
	fp, err := fingerprint.Create(key)
	if err != nil {
		return err
	}

	record := make([]byte, 0, SaltSize+len(fp))
	record = append(record, salt...)
	record = append(record, fp...)

	p.CustomMeta.Set(metaFingerprintKey, record)

	return nil
}

func logNotice(l hostio.Logger, msg string) {
	if l != nil {
		l.Notice(msg)
	}
}

func logWarning(l hostio.Logger, msg string, err error) {
	if l != nil {
		l.Warning(msg, "error", err)
	}
}
