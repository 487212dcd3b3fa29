package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/trustprop/internal/analysis"
	"github.com/papapumpkin/trustprop/internal/config"
	"github.com/papapumpkin/trustprop/internal/export"
	"github.com/papapumpkin/trustprop/internal/rating"
	"github.com/papapumpkin/trustprop/internal/telemetry"
	"github.com/papapumpkin/trustprop/internal/trust"
	"github.com/papapumpkin/trustprop/internal/ui"
)

// Report output formats.
const (
	reportText = "text"
	reportYAML = "yaml"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarise a trust score matrix and plot its distribution",
	Long: `Converts every reachable score back to the rating scale, computes each
actor's mean and standard deviation and classifies actors as trusted or
untrusted against the configured thresholds.

Generation and timeframe come from the manifest written next to the scores.
Without a manifest they are recomputed from --input and --generation.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("scores", "", "score matrix to analyse (default: configured output)")
	analyzeCmd.Flags().String("charts-dir", "", "directory for the PNG charts")
	analyzeCmd.Flags().String("format", reportText, "report format: text or yaml")
	analyzeCmd.Flags().Float64("avg-threshold", 0, "minimum mean for a trusted actor")
	analyzeCmd.Flags().Float64("stddev-threshold", 0, "maximum standard deviation for a trusted actor")
	analyzeCmd.Flags().String("input", "", "rating history, used when no manifest exists")
	analyzeCmd.Flags().Int("generation", 0, "history slice, used when no manifest exists")
	analyzeCmd.Flags().String("telemetry", "", "append a JSONL analysis event to this file")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	reportFormat, _ := cmd.Flags().GetString("format")
	if reportFormat != reportText && reportFormat != reportYAML {
		return fmt.Errorf("unknown report format %q (want %s or %s)", reportFormat, reportText, reportYAML)
	}

	thresholds := analysis.Thresholds{
		Avg:    cfg.Analysis.AvgThreshold,
		StdDev: cfg.Analysis.StdDevThreshold,
	}
	if err := thresholds.Validate(); err != nil {
		return err
	}

	printer := ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	man, err := resolveManifest(cfg)
	if err != nil {
		return err
	}

	rows, err := loadScoreRows(ctx, man)
	if err != nil {
		return err
	}
	slog.Info("scores loaded", "path", man.Output, "format", string(man.Format), "rows", len(rows))

	summary := analysis.Analyze(rows, thresholds)
	report := analysis.NewReport(man.Generation, man.FirstTime, man.LastTime, summary)

	charts, err := analysis.RenderCharts(cfg.ChartsDir, summary)
	switch {
	case errors.Is(err, analysis.ErrNoData):
		printer.Warn("no reachable scores; charts skipped")
	case err != nil:
		return err
	}
	report.Charts = charts

	if cfg.TelemetryPath != "" {
		if err := recordAnalysis(cfg.TelemetryPath, man.RunID, report); err != nil {
			return err
		}
	}

	if reportFormat == reportYAML {
		return analysis.WriteYAML(cmd.OutOrStdout(), report)
	}
	printer.Report(report)
	printer.ChartsWritten(charts)
	return nil
}

// applyAnalyzeFlags applies explicitly set CLI flag values to the loaded config.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("scores") {
		cfg.Output, _ = flags.GetString("scores")
	}
	if flags.Changed("charts-dir") {
		cfg.ChartsDir, _ = flags.GetString("charts-dir")
	}
	if flags.Changed("avg-threshold") {
		cfg.Analysis.AvgThreshold, _ = flags.GetFloat64("avg-threshold")
	}
	if flags.Changed("stddev-threshold") {
		cfg.Analysis.StdDevThreshold, _ = flags.GetFloat64("stddev-threshold")
	}
	if flags.Changed("input") {
		cfg.Input, _ = flags.GetString("input")
	}
	if flags.Changed("generation") {
		cfg.Generation, _ = flags.GetInt("generation")
	}
	if flags.Changed("telemetry") {
		cfg.TelemetryPath, _ = flags.GetString("telemetry")
	}
}

// resolveManifest loads the manifest stored next to the scores. When there is
// none, generation and timeframe are recomputed from the rating history and
// the scores are assumed to be CSV.
func resolveManifest(cfg config.Config) (export.Manifest, error) {
	man, err := export.LoadManifest(export.ManifestPath(cfg.Output))
	if err == nil {
		if man.Output == "" {
			man.Output = cfg.Output
		}
		if man.Format == "" {
			man.Format = export.FormatCSV
		}
		return man, nil
	}
	if !errors.Is(err, export.ErrNoManifest) {
		return export.Manifest{}, err
	}

	slog.Debug("no manifest, recomputing timeframe", "input", cfg.Input, "generation", cfg.Generation)
	gen, err := trust.ParseGeneration(cfg.Generation)
	if err != nil {
		return export.Manifest{}, err
	}
	records, err := rating.LoadFile(cfg.Input)
	if err != nil {
		return export.Manifest{}, fmt.Errorf("no manifest for %s and history unavailable: %w", cfg.Output, err)
	}
	window := trust.Window(records, gen)
	return export.Manifest{
		Generation: int(gen),
		Records:    window.Records,
		FirstTime:  window.First,
		LastTime:   window.Last,
		Format:     export.FormatCSV,
		Output:     cfg.Output,
	}, nil
}

// loadScoreRows reads the converted score rows from the store the manifest
// names.
func loadScoreRows(ctx context.Context, man export.Manifest) ([][]float64, error) {
	switch man.Format {
	case export.FormatCSV:
		return analysis.ReadScoresFile(man.Output)
	case export.FormatSQLite:
		store, err := export.OpenSQLite(ctx, man.Output)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		runID := man.RunID
		if runID == "" {
			if runID, err = store.LatestRun(ctx); err != nil {
				return nil, err
			}
		}
		m, err := store.LoadMatrix(ctx, runID)
		if err != nil {
			return nil, err
		}
		return analysis.RowsFromMatrix(m), nil
	}
	return nil, fmt.Errorf("%w: %q", export.ErrUnknownFormat, man.Format)
}

func recordAnalysis(path, runID string, r analysis.Report) error {
	emitter, err := telemetry.NewEmitter(path, runID)
	if err != nil {
		return err
	}
	defer emitter.Close()
	return emitter.Record(telemetry.KindAnalysisDone, map[string]any{
		"nodes":     r.Summary.Nodes,
		"trusted":   r.Summary.Trusted.Count,
		"untrusted": r.Summary.Untrusted.Count,
		"charts":    len(r.Charts),
	})
}
