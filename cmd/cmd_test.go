package cmd

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/trustprop/internal/analysis"
	"github.com/papapumpkin/trustprop/internal/export"
	"github.com/papapumpkin/trustprop/internal/telemetry"
)

// history has two source actors: 1 rates 2 highly, 2 rates 1 and 3
// negatively. Single-edge scores are averaged over two hops, so actor 1's
// row converts back to 1/(1/42)-11 = 31 (trusted) and actor 2's row to
// 1/(1/12)-11 = 1 (untrusted).
const history = "1,2,10,100\n2,1,-5,200\n2,3,-3,300\n"

func writeHistory(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(path, []byte(history), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSubcommands_Registered(t *testing.T) {
	t.Parallel()

	want := map[string]bool{"build": false, "analyze": false, "telemetry": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered on rootCmd", name)
		}
	}
}

func TestBuildCmd_Flags(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"input", "output", "generation", "format", "workers", "frontier", "telemetry", "metrics-file", "watch"} {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()
			if buildCmd.Flags().Lookup(flag) == nil {
				t.Errorf("expected flag %q to be registered on build command", flag)
			}
		})
	}
}

func TestAnalyzeCmd_Flags(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"scores", "charts-dir", "format", "avg-threshold", "stddev-threshold", "input", "generation"} {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()
			if analyzeCmd.Flags().Lookup(flag) == nil {
				t.Errorf("expected flag %q to be registered on analyze command", flag)
			}
		})
	}
}

func TestBuildThenAnalyze_CSV(t *testing.T) {
	// Not parallel: drives the shared rootCmd.
	dir := t.TempDir()
	input := writeHistory(t, dir)
	output := filepath.Join(dir, "scores.csv")
	events := filepath.Join(dir, "events.jsonl")
	prom := filepath.Join(dir, "trustprop.prom")

	_, stderr, err := execute(t, "build",
		"--input", input, "--output", output, "--generation", "3", "--format", "csv",
		"--frontier", "heap", "--workers", "2",
		"--telemetry", events, "--metrics-file", prom)
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,0,0.023809523809523808", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2,0.08333333"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",0"), lines[1])

	man, err := export.LoadManifest(export.ManifestPath(output))
	require.NoError(t, err)
	assert.Equal(t, 3, man.Generation)
	assert.Equal(t, 3, man.Records)
	assert.Equal(t, int64(100), man.FirstTime)
	assert.Equal(t, int64(300), man.LastTime)
	assert.Equal(t, 2, man.Actors)
	assert.Equal(t, 3, man.Edges)
	assert.Equal(t, export.FormatCSV, man.Format)
	assert.NotEmpty(t, man.RunID)

	f, err := os.Open(events)
	require.NoError(t, err)
	evts, err := telemetry.ReadEvents(f)
	f.Close()
	require.NoError(t, err)
	require.NotEmpty(t, evts)
	assert.Equal(t, telemetry.KindRunStart, evts[0].Kind)
	assert.Equal(t, telemetry.KindRunDone, evts[len(evts)-1].Kind)
	for _, e := range evts {
		assert.Equal(t, man.RunID, e.RunID)
	}

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "trustprop_records_loaded_total 3")
	assert.Contains(t, string(metricsText), "trustprop_propagations_total 2")

	stdout, stderr, err := execute(t, "analyze",
		"--scores", output, "--charts-dir", dir, "--format", "yaml")
	require.NoError(t, err, stderr)

	var report analysis.Report
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 3, report.Generation)
	assert.Equal(t, "01/01/1970 00:01:40 GMT", report.From)
	assert.Equal(t, "01/01/1970 00:05:00 GMT", report.To)
	assert.Equal(t, 2, report.Summary.Nodes)
	assert.Equal(t, 1, report.Summary.Trusted.Count)
	assert.Equal(t, 1, report.Summary.Untrusted.Count)
	assert.InDelta(t, 31.0, report.Summary.Trusted.MeanScore, 1e-9)
	assert.InDelta(t, 1.0, report.Summary.Untrusted.MeanScore, 1e-9)
	require.Len(t, report.Charts, 2)
	for _, chart := range report.Charts {
		assert.FileExists(t, chart)
	}
}

func TestBuildThenAnalyze_SQLite(t *testing.T) {
	// Not parallel: drives the shared rootCmd.
	dir := t.TempDir()
	input := writeHistory(t, dir)
	output := filepath.Join(dir, "scores.db")

	_, stderr, err := execute(t, "build",
		"--input", input, "--output", output, "--generation", "3", "--format", "sqlite",
		"--frontier", "btree", "--workers", "0", "--telemetry", "", "--metrics-file", "")
	require.NoError(t, err, stderr)

	stdout, stderr, err := execute(t, "analyze",
		"--scores", output, "--charts-dir", dir, "--format", "text")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "Graph generation: 3")
	assert.Contains(t, stdout, "Total nodes: 2")
	assert.Contains(t, stdout, "Total trusted nodes: 1")
	assert.Contains(t, stdout, "Total untrusted nodes: 1")
}

func TestAnalyze_WithoutManifestUsesHistory(t *testing.T) {
	// Not parallel: drives the shared rootCmd.
	dir := t.TempDir()
	input := writeHistory(t, dir)
	output := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(output, []byte("1,0,0.047619047619047616\n"), 0o644))

	stdout, stderr, err := execute(t, "analyze",
		"--scores", output, "--charts-dir", dir, "--format", "yaml",
		"--input", input, "--generation", "1")
	require.NoError(t, err, stderr)

	var report analysis.Report
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 1, report.Generation)
	assert.Equal(t, "01/01/1970 00:01:40 GMT", report.From)
	assert.Equal(t, "01/01/1970 00:01:40 GMT", report.To)
	assert.Equal(t, 1, report.Summary.Nodes)
}

func TestBuild_RejectsInvalidGeneration(t *testing.T) {
	// Not parallel: drives the shared rootCmd.
	dir := t.TempDir()
	input := writeHistory(t, dir)

	_, _, err := execute(t, "build",
		"--input", input, "--output", filepath.Join(dir, "out.csv"), "--generation", "5", "--format", "csv",
		"--telemetry", "", "--metrics-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation 5")
}

func TestBuild_MissingInput(t *testing.T) {
	// Not parallel: drives the shared rootCmd.
	dir := t.TempDir()

	_, _, err := execute(t, "build",
		"--input", filepath.Join(dir, "absent.csv"), "--output", filepath.Join(dir, "out.csv"),
		"--generation", "3", "--format", "csv", "--telemetry", "", "--metrics-file", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrintEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		runID string
		want  string
	}{
		{
			name: "data map sorted",
			line: `{"ts":"2024-01-02T03:04:05Z","kind":"graph_built","run":"abcd1234-0000","data":{"edges":3,"actors":2}}`,
			want: "graph_built run=abcd1234 actors=2 edges=3",
		},
		{
			name:  "filtered run",
			line:  `{"ts":"2024-01-02T03:04:05Z","kind":"run_done","run":"other"}`,
			runID: "mine",
			want:  "",
		},
		{
			name: "malformed",
			line: `not json`,
			want: "??? not json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			printEvent(&buf, tt.line, tt.runID)
			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestEventFeed_HoldsPartialLine(t *testing.T) {
	t.Parallel()

	// src stands in for a file that is still being appended to.
	var src, out bytes.Buffer
	feed := &eventFeed{r: bufio.NewReader(&src)}

	first := `{"ts":"2024-01-02T03:04:05Z","kind":"run_start","run":"aaaa-1"}` + "\n"
	second := `{"ts":"2024-01-02T03:04:06Z","kind":"graph_built","run":"aaaa-1","data":{"actors":2}}` + "\n"

	src.WriteString(first + second[:20])
	require.NoError(t, feed.drain(&out))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"), "only the complete line is printed")
	assert.Contains(t, out.String(), "run_start")
	assert.NotContains(t, out.String(), "???")

	src.WriteString(second[20:])
	require.NoError(t, feed.drain(&out))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "graph_built run=aaaa actors=2")
	assert.NotContains(t, out.String(), "???")
}

func TestEventFeed_FlushPrintsUnterminatedLine(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	feed := &eventFeed{r: bufio.NewReader(strings.NewReader(`{"kind":"run_done","run":"bbbb-2"}`))}

	require.NoError(t, feed.drain(&out))
	assert.Empty(t, out.String())

	feed.flush(&out)
	assert.Contains(t, out.String(), "run_done run=bbbb")
}
