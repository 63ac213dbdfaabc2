// Package hostio defines the host collaborators the aes256 filter calls
// out to (spec.md §6): logging, interactive password prompting, the
// volume-scoped custom-meta store, and per-volume config-directory file
// I/O. These are external to the filter core; this package only shapes
// them as interfaces plus the small concrete adapters the CLI uses to play
// the host's role.
package hostio

import "os"

// Logger receives filter diagnostics. Every message is conceptually
// prefixed "aes256:" (spec.md §6); concrete implementations are free to
// realize that via a structured field instead of string concatenation.
type Logger interface {
	Notice(msg string, args ...any)
	Warning(msg string, args ...any)
	Error(msg string, args ...any)
}

// PasswordPrompter requests a password from whatever interactive surface
// the host provides.
type PasswordPrompter interface {
	Prompt(label string) (string, error)
}

// MetaStore is the volume-scoped key/value store used to publish the
// fingerprint cross-client (spec.md §4.3.1, custom_meta["aes256_fp"]).
type MetaStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// ConfigDir is the per-volume local state directory: the key cache file
// and the last-seen custom-meta snapshot ("custfp"). Read returns an error
// satisfying errors.Is(err, os.ErrNotExist) when the file is absent.
type ConfigDir interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, mode os.FileMode) error
	Remove(name string) error
}
