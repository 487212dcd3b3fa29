// Package export lays propagated trust scores out as a dense matrix and
// writes it to CSV or SQLite, alongside a TOML manifest describing the run
// that produced it.
package export

import (
	"math"

	"github.com/papapumpkin/trustprop/internal/trust"
)

// Row holds the scores computed from one start actor.
type Row struct {
	Start  int
	Scores trust.Scores
}

// Matrix is a dense view over per-start scores. Every row is rendered
// across the same Columns, in order.
type Matrix struct {
	Columns []int
	Rows    []Row
}

// NewMatrix arranges the scores in all using g's source actors both as the
// column order and as the row order. Start actors missing from all produce
// rows with no reachable actors.
func NewMatrix(g *trust.Graph, all map[int]trust.Scores) Matrix {
	actors := g.Actors()
	m := Matrix{
		Columns: actors,
		Rows:    make([]Row, 0, len(actors)),
	}
	for _, start := range actors {
		m.Rows = append(m.Rows, Row{Start: start, Scores: all[start]})
	}
	return m
}

// Value returns the row's score for col, or +Inf when col is unreachable.
func (r Row) Value(col int) float64 {
	if v, ok := r.Scores[col]; ok {
		return v
	}
	return math.Inf(1)
}

// Cells returns the row's values across m.Columns.
func (m Matrix) Cells(r Row) []float64 {
	out := make([]float64, len(m.Columns))
	for i, col := range m.Columns {
		out[i] = r.Value(col)
	}
	return out
}
