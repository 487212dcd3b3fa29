package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidThreshold is returned by Thresholds.Validate for non-finite values.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Thresholds separate trusted actors from untrusted ones.
type Thresholds struct {
	// Avg is the minimum mean rating-scale score of a trusted actor.
	Avg float64 `yaml:"avg"`
	// StdDev is the maximum spread of a trusted actor's scores.
	StdDev float64 `yaml:"stddev"`
}

// DefaultThresholds returns avg 6.0 and stddev 2.2.
func DefaultThresholds() Thresholds {
	return Thresholds{Avg: 6.0, StdDev: 2.2}
}

// Validate checks that both thresholds are finite and the spread is not
// negative.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Avg) || math.IsInf(t.Avg, 0) {
		return fmt.Errorf("%w: avg %v", ErrInvalidThreshold, t.Avg)
	}
	if math.IsNaN(t.StdDev) || math.IsInf(t.StdDev, 0) || t.StdDev < 0 {
		return fmt.Errorf("%w: stddev %v", ErrInvalidThreshold, t.StdDev)
	}
	return nil
}

// RowStats is the population mean and standard deviation of one actor's
// converted scores.
type RowStats struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
}

// Trusted reports whether the row is stable and high enough to be trusted.
// Every row is either trusted or untrusted.
func (r RowStats) Trusted(t Thresholds) bool {
	return r.Mean >= t.Avg && r.StdDev <= t.StdDev
}

// Group aggregates a class of actors.
type Group struct {
	Count     int     `yaml:"count"`
	MeanScore float64 `yaml:"mean_score"`
}

// Summary is the result of analysing a score matrix.
type Summary struct {
	Nodes          int        `yaml:"nodes"`
	MeanOfAverages float64    `yaml:"mean_of_averages"`
	MeanOfStdDevs  float64    `yaml:"mean_of_std_devs"`
	Trusted        Group      `yaml:"trusted"`
	Untrusted      Group      `yaml:"untrusted"`
	Thresholds     Thresholds `yaml:"thresholds"`
	Rows           []RowStats `yaml:"-"`
}

// Means returns each row's mean in row order.
func (s Summary) Means() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Mean
	}
	return out
}

// StdDevs returns each row's standard deviation in row order.
func (s Summary) StdDevs() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.StdDev
	}
	return out
}

// Analyze computes per-row statistics and classifies every row against t.
// Means over empty sets are reported as 0.
func Analyze(rows [][]float64, t Thresholds) Summary {
	s := Summary{
		Nodes:      len(rows),
		Thresholds: t,
		Rows:       make([]RowStats, 0, len(rows)),
	}

	var trusted, untrusted []float64
	for _, vals := range rows {
		mean, std := stat.PopMeanStdDev(vals, nil)
		rs := RowStats{Mean: mean, StdDev: std}
		s.Rows = append(s.Rows, rs)

		if rs.Trusted(t) {
			trusted = append(trusted, mean)
		} else {
			untrusted = append(untrusted, mean)
		}
	}

	s.MeanOfAverages = meanOrZero(s.Means())
	s.MeanOfStdDevs = meanOrZero(s.StdDevs())
	s.Trusted = Group{Count: len(trusted), MeanScore: meanOrZero(trusted)}
	s.Untrusted = Group{Count: len(untrusted), MeanScore: meanOrZero(untrusted)}
	return s
}

func meanOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Histogram range and bin width on the rating scale.
const (
	histogramMin = -10
	histogramMax = 10
	binWidth     = 1.0
)

// Histogram counts values into unit-width bins over [-10, 10). Bin i covers
// [-10+i, -9+i). Values outside the range are not counted.
func Histogram(values []float64) []int {
	bins := make([]int, histogramMax-histogramMin)
	for _, v := range values {
		idx := int(math.Floor((v - histogramMin) / binWidth))
		if idx >= 0 && idx < len(bins) {
			bins[idx]++
		}
	}
	return bins
}
