package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Unreachable is the CSV spelling of a missing score.
const Unreachable = "inf"

// FormatScore renders a score in plain decimal notation, or Unreachable for
// +Inf.
func FormatScore(v float64) string {
	if math.IsInf(v, 1) {
		return Unreachable
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes one headerless row per start actor: the start actor ID
// followed by its score for every column of m.
func WriteCSV(w io.Writer, m Matrix) error {
	cw := csv.NewWriter(w)
	record := make([]string, len(m.Columns)+1)
	for _, row := range m.Rows {
		record[0] = strconv.Itoa(row.Start)
		for i, col := range m.Columns {
			record[i+1] = FormatScore(row.Value(col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row %d: %w", row.Start, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes m to path, replacing any existing file.
func WriteCSVFile(path string, m Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteCSV(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}
