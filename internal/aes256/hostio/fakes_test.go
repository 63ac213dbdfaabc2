package hostio_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"aes256filter/internal/aes256/hostio"
)

func TestFSConfigDir_ReadWriteRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cd := hostio.NewFSConfigDir(dir)

	_, err := cd.ReadFile("key")
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, cd.WriteFile("key", []byte("0123456789abcdef"), 0o600))

	data, err := cd.ReadFile("key")
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef"), data)

	require.NoError(t, cd.Remove("key"))

	_, err = cd.ReadFile("key")
	require.ErrorIs(t, err, os.ErrNotExist)

	// removing an already-absent file is not an error.
	require.NoError(t, cd.Remove("key"))
}

func TestJSONMetaStore_RoundTripAndPersist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := hostio.NewJSONMetaStore(dir)
	require.NoError(t, err)

	_, ok := store.Get("aes256_fp")
	require.False(t, ok)

	store.Set("aes256_fp", []byte("some-fingerprint-bytes"))

	value, ok := store.Get("aes256_fp")
	require.True(t, ok)
	require.Equal(t, []byte("some-fingerprint-bytes"), value)

	reloaded, err := hostio.NewJSONMetaStore(dir)
	require.NoError(t, err)

	value, ok = reloaded.Get("aes256_fp")
	require.True(t, ok)
	require.Equal(t, []byte("some-fingerprint-bytes"), value)
}
