package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/papapumpkin/trustprop/internal/analysis"
)

func TestReport_ContainsSummaryLines(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	s := analysis.Analyze([][]float64{{7, 7}, {2, 4}}, analysis.DefaultThresholds())
	p.Report(analysis.NewReport(3, 1289241912, 1453684323, s))

	text := out.String()
	checks := []struct {
		name   string
		substr string
	}{
		{"generation", "Graph generation: 3"},
		{"timeframe start", "08/11/2010 18:45:12 GMT"},
		{"nodes", "Total nodes: 2"},
		{"mean", "Mean score of all the nodes: 5.0000"},
		{"untrusted", "Total untrusted nodes: 1"},
		{"trusted", "Total trusted nodes: 1"},
		{"trusted mean", "Average score of these nodes: 7.0000"},
	}
	for _, c := range checks {
		if !strings.Contains(text, c.substr) {
			t.Errorf("expected output to contain %s (%q), got:\n%s", c.name, c.substr, text)
		}
	}
	assert.Empty(t, errOut.String(), "report goes to Out only")
}

func TestStatusLines_GoToErr(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.BuildStart("ratings.csv", 2)
	p.GraphBuilt(4, 9, 0)
	p.Exported("scores.csv", 4)
	p.ChartsWritten([]string{"a.png", "b.png"})
	p.Warn("careful")
	p.Error("broken")

	text := errOut.String()
	for _, substr := range []string{"ratings.csv", "generation 2", "4 actors, 9 edges", "scores.csv", "a.png", "b.png", "careful", "broken"} {
		assert.Contains(t, text, substr)
	}
	assert.Empty(t, out.String())
}

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown", "actors", 3)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "actors=3")
}
