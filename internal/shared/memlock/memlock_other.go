//go:build !unix

package memlock

import "errors"

func lock(buf []byte) (bool, error) {
	return false, errors.New("memlock: not supported on this platform")
}

func unlock(buf []byte) error {
	return nil
}
