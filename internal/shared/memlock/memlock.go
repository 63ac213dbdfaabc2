// Package memlock provides a scoped guard over a byte buffer that must not
// be swapped to disk for its lifetime: the session key, the derived
// password buffer, and the prompted password buffer.
//
// On platforms where golang.org/x/sys/unix.Mlock is available, acquisition
// locks the backing pages; on any other platform (or if the lock syscall
// fails, e.g. RLIMIT_MEMLOCK exhausted) locking degrades to a no-op and a
// warning is logged through the supplied warner. Release always zeroises
// the buffer before unlocking, on every call path, including after a
// failed lock.
package memlock

// Warner receives a message when locking degrades to a no-op. It is
// satisfied by hostio.Logger; kept minimal here to avoid an import cycle.
type Warner interface {
	Warning(msg string, args ...any)
}

// Guard owns a locked (best-effort) buffer and wipes it on Release.
type Guard struct {
	buf    []byte
	locked bool
}

// Acquire locks buf against paging (best effort) and returns a Guard that
// owns it. The caller must call Release exactly once, on every exit path
// including errors.
func Acquire(buf []byte, warner Warner) *Guard {
	locked, err := lock(buf)
	if err != nil && warner != nil {
		warner.Warning("aes256: failed to lock memory, continuing without swap protection", "error", err)
	}

	return &Guard{buf: buf, locked: locked}
}

// Bytes returns the guarded buffer.
func (g *Guard) Bytes() []byte {
	if g == nil {
		return nil
	}

	return g.buf
}

// Release zeroises the buffer and, if it was locked, unlocks it. Safe to
// call on a nil Guard or to call more than once.
func (g *Guard) Release() {
	if g == nil {
		return
	}

	for i := range g.buf {
		g.buf[i] = 0
	}

	if g.locked {
		_ = unlock(g.buf)
		g.locked = false
	}
}
