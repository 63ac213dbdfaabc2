package hostio

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
)

// JSONMetaStore is a MetaStore stand-in for the CLI: the real volume-scoped
// custom-meta store is a host collaborator (spec.md §1), out of scope for
// this module. This adapter persists the same key/value shape to a JSON
// file inside cfgdir so the CLI can exercise the password-change-detection
// path end to end.
type JSONMetaStore struct {
	path   string
	values map[string][]byte
}

// NewJSONMetaStore loads (or initializes) the meta store backed by
// dir/custom-meta.json.
func NewJSONMetaStore(dir string) (*JSONMetaStore, error) {
	path := filepath.Join(dir, "custom-meta.json")

	values := map[string][]byte{}

	raw, err := os.ReadFile(path)
	if err == nil {
		encoded := map[string]string{}
		if jsonErr := json.Unmarshal(raw, &encoded); jsonErr != nil {
			return nil, jsonErr
		}

		for k, v := range encoded {
			decoded, decErr := base64.StdEncoding.DecodeString(v)
			if decErr != nil {
				return nil, decErr
			}

			values[k] = decoded
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return &JSONMetaStore{path: path, values: values}, nil
}

func (s *JSONMetaStore) Get(key string) ([]byte, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *JSONMetaStore) Set(key string, value []byte) {
	s.values[key] = value
	_ = s.flush()
}

func (s *JSONMetaStore) flush() error {
	encoded := make(map[string]string, len(s.values))
	for k, v := range s.values {
		encoded[k] = base64.StdEncoding.EncodeToString(v)
	}

	raw, err := json.Marshal(encoded)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, raw, 0o600)
}
