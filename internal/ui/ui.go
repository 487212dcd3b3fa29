// Package ui renders trustprop's human-facing output: progress lines on
// stderr, the analysis summary on stdout, and the structured logger used by
// the CLI.
package ui

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/trustprop/internal/analysis"
)

// Styles. Colours degrade to plain text when the output is not a terminal.
var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleOK     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleWarn   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	styleError  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	styleDim    = lipgloss.NewStyle().Faint(true)
	styleLabel  = lipgloss.NewStyle().Bold(true)
	styleBullet = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// Printer writes status lines to Err and reports to Out.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New creates a Printer.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

// NewLogger returns a text logger on w, at debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (p *Printer) BuildStart(input string, generation int) {
	fmt.Fprintf(p.Err, "%s %s %s\n",
		styleTitle.Render("▶ build"), input, styleDim.Render(fmt.Sprintf("(generation %d)", generation)))
}

func (p *Printer) GraphBuilt(actors, edges int, lastTime int64) {
	fmt.Fprintf(p.Err, "%s %d actors, %d edges %s\n",
		styleOK.Render("✓ graph"), actors, edges,
		styleDim.Render("(last transaction "+analysis.FormatGMT(lastTime)+")"))
}

func (p *Printer) Exported(path string, rows int) {
	fmt.Fprintf(p.Err, "%s %d rows → %s\n", styleOK.Render("✓ scores"), rows, path)
}

func (p *Printer) ChartsWritten(paths []string) {
	for _, path := range paths {
		fmt.Fprintf(p.Err, "%s %s\n", styleOK.Render("✓ chart"), path)
	}
}

func (p *Printer) Watching(path string) {
	fmt.Fprintf(p.Err, "%s %s %s\n", styleTitle.Render("◆ watching"), path, styleDim.Render("(ctrl-c to stop)"))
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.Err, "%s %s\n", styleWarn.Render("⚠"), msg)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.Err, "%s %s\n", styleError.Render("error:"), msg)
}

// Report prints the analysis header and summary.
func (p *Printer) Report(r analysis.Report) {
	s := r.Summary
	fmt.Fprintf(p.Out, "%s %d\n", styleLabel.Render("Graph generation:"), r.Generation)
	fmt.Fprintf(p.Out, "%s %s - %s\n", styleLabel.Render("Timeframe:"), r.From, r.To)
	fmt.Fprintf(p.Out, "%s %d\n", styleLabel.Render("Total nodes:"), s.Nodes)
	fmt.Fprintf(p.Out, "Mean score of all the nodes: %.4f\n", s.MeanOfAverages)
	fmt.Fprintf(p.Out, "Mean standard deviations of all the nodes: %.4f\n", s.MeanOfStdDevs)
	p.group("Total untrusted nodes:", s.Untrusted)
	p.group("Total trusted nodes:", s.Trusted)
	fmt.Fprintln(p.Out, styleDim.Render(fmt.Sprintf("thresholds: avg ≥ %.2f, stddev ≤ %.2f", s.Thresholds.Avg, s.Thresholds.StdDev)))
}

func (p *Printer) group(label string, g analysis.Group) {
	fmt.Fprintf(p.Out, "%s %d\n", styleLabel.Render(label), g.Count)
	fmt.Fprintf(p.Out, "    %s Average score of these nodes: %.4f\n", styleBullet.Render("-"), g.MeanScore)
}
