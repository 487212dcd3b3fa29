package analysis

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// gmtLayout renders day/month/year times in UTC.
const gmtLayout = "02/01/2006 15:04:05 GMT"

// FormatGMT renders a Unix timestamp as "dd/mm/yyyy hh:mm:ss GMT".
func FormatGMT(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(gmtLayout)
}

// Report bundles a Summary with the generation and timeframe it describes.
type Report struct {
	Generation int      `yaml:"generation"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Summary    Summary  `yaml:"summary"`
	Charts     []string `yaml:"charts,omitempty"`
}

// NewReport builds a Report for a generation whose records span first..last.
func NewReport(generation int, first, last int64, s Summary) Report {
	return Report{
		Generation: generation,
		From:       FormatGMT(first),
		To:         FormatGMT(last),
		Summary:    s,
	}
}

// WriteYAML encodes r as a YAML document.
func WriteYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("analysis: encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("analysis: close report encoder: %w", err)
	}
	return nil
}
