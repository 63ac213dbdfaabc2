package memlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeWarner struct {
	calls int
}

func (f *fakeWarner) Warning(msg string, args ...any) { f.calls++ }

func TestGuard_ReleaseZeroises(t *testing.T) {
	t.Parallel()

	buf := []byte("sensitive key material!!")
	original := append([]byte(nil), buf...)

	g := Acquire(buf, &fakeWarner{})
	require.Equal(t, original, g.Bytes())

	g.Release()

	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 32)
	g := Acquire(buf, &fakeWarner{})
	g.Release()
	g.Release()
}

func TestGuard_NilSafe(t *testing.T) {
	t.Parallel()

	var g *Guard
	require.Nil(t, g.Bytes())
	g.Release()
}

func TestGuard_EmptyBuffer(t *testing.T) {
	t.Parallel()

	warner := &fakeWarner{}
	g := Acquire(nil, warner)
	require.Equal(t, 0, warner.calls)
	g.Release()
}
