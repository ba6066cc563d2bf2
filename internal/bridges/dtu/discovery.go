package dtu

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadDiscovery reads every *.json file in dir as a discovery payload,
// keyed by file name without the extension. A missing directory yields no
// payloads.
//
// For example, discovery/inv_INV01_power.json is published to
// <discovery-prefix>/sensor/<namespace>/inv_INV01_power/config.
func LoadDiscovery(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]byte{}, nil
		}
		return nil, fmt.Errorf("reading discovery dir: %w", err)
	}

	blobs := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading discovery file %s: %w", e.Name(), err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDiscovery, e.Name())
		}

		blobs[strings.TrimSuffix(e.Name(), ".json")] = data
	}
	return blobs, nil
}
