package export

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned for output formats other than csv and sqlite.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects how a score matrix is stored.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates an output format name. An empty name means CSV.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatSQLite:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Write stores m at path in the given format and then saves man next to it.
// The manifest's Format and Output fields are filled in from the arguments.
func Write(ctx context.Context, path string, format Format, m Matrix, man Manifest) error {
	man.Format = format
	man.Output = path

	switch format {
	case FormatCSV:
		if err := WriteCSVFile(path, m); err != nil {
			return err
		}
	case FormatSQLite:
		store, err := OpenSQLite(ctx, path)
		if err != nil {
			return err
		}
		if err := store.Write(ctx, m, man); err != nil {
			store.Close()
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return SaveManifest(ManifestPath(path), man)
}
