// Package analysis summarises exported trust-score matrices: it maps scores
// back onto the rating scale, computes per-actor statistics, classifies
// actors as trusted or untrusted and renders charts of the distribution.
package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/papapumpkin/trustprop/internal/export"
)

// ToRatingScale inverts the edge cost transform on an averaged path score.
// Because scores are divided by the hop count, results are not confined to
// the rating range: a single edge rated 10 converts to 31.
func ToRatingScale(score float64) float64 {
	return 1.0/score - 11.0
}

// keep reports whether a score contributes to statistics. Unreachable cells
// and the zero self score carry no information.
func keep(score float64) bool {
	return !math.IsInf(score, 1) && score != 0 && !math.IsNaN(score)
}

// ReadScores reads a score matrix CSV as written by export.WriteCSV. The
// leading start-actor column is skipped, unparseable, unreachable and zero
// cells are dropped, and the rest are converted with ToRatingScale. Rows
// left with no values are omitted.
func ReadScores(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var rows [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("analysis: read scores: %w", err)
		}
		if len(rec) < 2 {
			continue
		}

		var vals []float64
		for _, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || !keep(v) {
				continue
			}
			vals = append(vals, ToRatingScale(v))
		}
		if len(vals) > 0 {
			rows = append(rows, vals)
		}
	}
	return rows, nil
}

// ReadScoresFile reads the score matrix CSV at path.
func ReadScoresFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadScores(f)
}

// RowsFromMatrix applies the same filtering and conversion as ReadScores to
// an in-memory matrix.
func RowsFromMatrix(m export.Matrix) [][]float64 {
	var rows [][]float64
	for _, row := range m.Rows {
		var vals []float64
		for _, v := range m.Cells(row) {
			if keep(v) {
				vals = append(vals, ToRatingScale(v))
			}
		}
		if len(vals) > 0 {
			rows = append(rows, vals)
		}
	}
	return rows
}
