//go:build unix

package memlock

import "golang.org/x/sys/unix"

func lock(buf []byte) (bool, error) {
	if len(buf) == 0 {
		return false, nil
	}

	if err := unix.Mlock(buf); err != nil {
		return false, err
	}

	return true, nil
}

func unlock(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	return unix.Munlock(buf)
}
