package export

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNoManifest is returned by LoadManifest when no manifest exists.
var ErrNoManifest = errors.New("manifest not found")

// manifestSuffix is appended to an output path to name its manifest.
const manifestSuffix = ".manifest.toml"

// Manifest records how a score matrix was produced.
type Manifest struct {
	RunID      string    `toml:"run_id"`
	Generation int       `toml:"generation"`
	Records    int       `toml:"records"`
	FirstTime  int64     `toml:"first_time"`
	LastTime   int64     `toml:"last_time"`
	Actors     int       `toml:"actors"`
	Edges      int       `toml:"edges"`
	Format     Format    `toml:"format"`
	Output     string    `toml:"output"`
	CreatedAt  time.Time `toml:"created_at"`
}

// ManifestPath returns the manifest location for an output file.
func ManifestPath(output string) string {
	return output + manifestSuffix
}

// SaveManifest writes m to path atomically (write temp + rename).
func SaveManifest(path string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("export: marshaling manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("export: writing temp manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("export: renaming manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest at path. It returns an error wrapping
// ErrNoManifest if the file does not exist.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("export: %w: %s", ErrNoManifest, path)
		}
		return Manifest{}, fmt.Errorf("export: reading manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("export: parsing manifest %s: %w", path, err)
	}
	return m, nil
}
