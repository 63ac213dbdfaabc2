package hostio

import (
	"fmt"
	"os"
	"path/filepath"
)

// FSConfigDir implements ConfigDir against a real directory on disk, with
// the cache-file permissions spec.md §3 requires (0600).
type FSConfigDir struct {
	dir string
}

// NewFSConfigDir returns a ConfigDir rooted at dir. dir must already exist.
func NewFSConfigDir(dir string) *FSConfigDir {
	return &FSConfigDir{dir: dir}
}

func (c *FSConfigDir) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return data, nil
}

func (c *FSConfigDir) WriteFile(name string, data []byte, mode os.FileMode) error {
	if err := os.WriteFile(filepath.Join(c.dir, name), data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	return nil
}

func (c *FSConfigDir) Remove(name string) error {
	if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}

	return nil
}
