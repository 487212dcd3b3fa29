package trust

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/papapumpkin/trustprop/internal/rating"
)

// ErrInvalidGeneration is returned when a generation selector is outside 1..3.
var ErrInvalidGeneration = errors.New("invalid generation")

// Generation selects how much of the chronological rating history contributes
// to a graph.
type Generation int

const (
	GenerationFirstThird Generation = 1 // first third of the records
	GenerationTwoThirds  Generation = 2 // first two thirds
	GenerationFull       Generation = 3 // every record
)

// ParseGeneration validates n as a generation selector.
func ParseGeneration(n int) (Generation, error) {
	g := Generation(n)
	switch g {
	case GenerationFirstThird, GenerationTwoThirds, GenerationFull:
		return g, nil
	}
	return 0, fmt.Errorf("%w: %d (want 1, 2 or 3)", ErrInvalidGeneration, n)
}

// Cutoff returns the number of leading records the generation includes out of
// n. Selectors other than 1 and 2 include everything. The result is always in
// [0, n].
func (g Generation) Cutoff(n int) int {
	if n <= 0 {
		return 0
	}
	var end int
	switch g {
	case GenerationFirstThird:
		end = n / 3
	case GenerationTwoThirds:
		end = (2 * n) / 3
	default:
		end = n
	}
	return min(end, n)
}

func (g Generation) String() string {
	return strconv.Itoa(int(g))
}

// Timeframe describes the slice of history a generation covers. First and
// Last are zero when the slice is empty.
type Timeframe struct {
	First   int64
	Last    int64
	Records int
}

// Window returns the timeframe of the records selected by gen.
func Window(records []rating.Record, gen Generation) Timeframe {
	prefix := records[:gen.Cutoff(len(records))]
	if len(prefix) == 0 {
		return Timeframe{}
	}
	return Timeframe{
		First:   prefix[0].Time,
		Last:    prefix[len(prefix)-1].Time,
		Records: len(prefix),
	}
}

// Build constructs the graph for the generation's prefix of records, adding
// one edge per record in input order. It returns the graph together with the
// time of the last included record, or 0 when nothing is included.
func Build(records []rating.Record, gen Generation) (*Graph, int64) {
	g := NewGraph()
	if len(records) == 0 {
		return g, 0
	}

	prefix := records[:gen.Cutoff(len(records))]
	for _, r := range prefix {
		g.AddEdge(r.Source, r.Target, r.Rating)
	}

	var last int64
	if len(prefix) > 0 {
		last = prefix[len(prefix)-1].Time
	}
	return g, last
}
