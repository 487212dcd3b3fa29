package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/trustprop/internal/config"
	"github.com/papapumpkin/trustprop/internal/export"
	"github.com/papapumpkin/trustprop/internal/metrics"
	"github.com/papapumpkin/trustprop/internal/rating"
	"github.com/papapumpkin/trustprop/internal/telemetry"
	"github.com/papapumpkin/trustprop/internal/trust"
	"github.com/papapumpkin/trustprop/internal/ui"
	"github.com/papapumpkin/trustprop/internal/watch"
)

// Rating scale documented for the input history.
const (
	minRating = -10
	maxRating = 10
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the trust graph and write the trust score matrix",
	Long: `Loads the rating history, builds the graph for the selected generation,
propagates trust from every actor that has issued a rating and writes the
resulting matrix together with a manifest describing the run.

Generation 1 uses the first third of the history, 2 the first two thirds and
3 all of it. Unreachable pairs are written as "inf" in CSV and NULL in SQLite.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("input", "", "rating history CSV (source,target,rating,time)")
	buildCmd.Flags().String("output", "", "score matrix destination")
	buildCmd.Flags().Int("generation", 0, "history slice: 1, 2 or 3")
	buildCmd.Flags().String("format", "", "output format: csv or sqlite")
	buildCmd.Flags().Int("workers", 0, "concurrent propagations (0 = one per CPU)")
	buildCmd.Flags().String("frontier", "", "priority queue: btree or heap")
	buildCmd.Flags().String("telemetry", "", "append JSONL run events to this file")
	buildCmd.Flags().String("metrics-file", "", "write Prometheus textfile metrics here")
	buildCmd.Flags().Bool("watch", false, "rebuild whenever the input file changes")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyBuildFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	printer := ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx, cancel := setupSignalContext(cmd.Context())
	defer cancel()

	if err := buildOnce(ctx, cfg, printer); err != nil {
		return err
	}

	if w, _ := cmd.Flags().GetBool("watch"); !w {
		return nil
	}
	return watchAndRebuild(ctx, cfg, printer)
}

// applyBuildFlags applies explicitly set CLI flag values to the loaded config.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input, _ = flags.GetString("input")
	}
	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Changed("generation") {
		cfg.Generation, _ = flags.GetInt("generation")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("frontier") {
		cfg.Frontier, _ = flags.GetString("frontier")
	}
	if flags.Changed("telemetry") {
		cfg.TelemetryPath, _ = flags.GetString("telemetry")
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsPath, _ = flags.GetString("metrics-file")
	}
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// buildOnce performs one complete build with its own run ID, telemetry
// stream and metrics snapshot.
func buildOnce(ctx context.Context, cfg config.Config, printer *ui.Printer) error {
	runID := uuid.NewString()
	log := slog.With("run", runID)

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		e, err := telemetry.NewEmitter(cfg.TelemetryPath, runID)
		if err != nil {
			return err
		}
		emitter = e
		defer emitter.Close()
	}

	var rec *metrics.Recorder
	if cfg.MetricsPath != "" {
		rec = metrics.NewRecorder()
	}

	_ = emitter.Record(telemetry.KindRunStart, map[string]any{
		"input":      cfg.Input,
		"generation": cfg.Generation,
		"format":     cfg.Format,
	})

	printer.BuildStart(cfg.Input, cfg.Generation)
	man, err := build(ctx, cfg, runID, log, printer, emitter, rec)
	rec.ObserveRun(err)
	if err != nil {
		_ = emitter.Record(telemetry.KindRunFailed, map[string]any{"error": err.Error()})
		log.Error("build failed", "error", err)
	} else {
		_ = emitter.Record(telemetry.KindRunDone, map[string]any{"output": man.Output})
	}

	if cfg.MetricsPath != "" {
		if werr := rec.WriteTextfile(cfg.MetricsPath); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

// build runs the pipeline from rating history to stored matrix.
func build(ctx context.Context, cfg config.Config, runID string, log *slog.Logger,
	printer *ui.Printer, emitter *telemetry.Emitter, rec *metrics.Recorder) (export.Manifest, error) {
	gen, err := trust.ParseGeneration(cfg.Generation)
	if err != nil {
		return export.Manifest{}, err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return export.Manifest{}, err
	}
	frontier, err := trust.ParseFrontier(cfg.Frontier)
	if err != nil {
		return export.Manifest{}, err
	}

	records, err := rating.LoadFile(cfg.Input)
	if err != nil {
		return export.Manifest{}, err
	}
	rec.ObserveRecords(len(records))
	log.Info("records loaded", "input", cfg.Input, "records", len(records))
	_ = emitter.Record(telemetry.KindRecordsLoaded, map[string]any{"records": len(records)})
	if n := countOutOfRange(records); n > 0 {
		printer.Warn(fmt.Sprintf("%d ratings outside %d..%d; edge costs for them are not meaningful", n, minRating, maxRating))
	}

	window := trust.Window(records, gen)
	g, lastTime := trust.Build(records, gen)
	rec.ObserveGraph(g.Len(), g.EdgeCount(), lastTime)
	log.Info("graph built", "generation", int(gen), "actors", g.Len(), "edges", g.EdgeCount(), "last_time", lastTime)
	_ = emitter.Record(telemetry.KindGraphBuilt, map[string]any{
		"generation": int(gen),
		"actors":     g.Len(),
		"edges":      g.EdgeCount(),
		"last_time":  lastTime,
	})
	printer.GraphBuilt(g.Len(), g.EdgeCount(), lastTime)

	began := time.Now()
	all, err := trust.PropagateAll(ctx, g,
		trust.WithFrontier(frontier),
		trust.WithWorkers(cfg.Workers),
		trust.WithObserver(rec.ObservePropagation),
	)
	if err != nil {
		return export.Manifest{}, err
	}
	elapsed := time.Since(began)
	log.Info("propagation done", "starts", len(all), "elapsed", elapsed)
	_ = emitter.Record(telemetry.KindPropagationDone, map[string]any{
		"starts":     len(all),
		"elapsed_ms": elapsed.Milliseconds(),
	})

	m := export.NewMatrix(g, all)
	man := export.Manifest{
		RunID:      runID,
		Generation: int(gen),
		Records:    window.Records,
		FirstTime:  window.First,
		LastTime:   window.Last,
		Actors:     g.Len(),
		Edges:      g.EdgeCount(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := export.Write(ctx, cfg.Output, format, m, man); err != nil {
		return export.Manifest{}, err
	}
	man.Format = format
	man.Output = cfg.Output

	log.Info("scores exported", "output", cfg.Output, "format", string(format), "rows", len(m.Rows))
	_ = emitter.Record(telemetry.KindExportDone, map[string]any{
		"output": cfg.Output,
		"format": string(format),
		"rows":   len(m.Rows),
	})
	printer.Exported(cfg.Output, len(m.Rows))
	return man, nil
}

func countOutOfRange(records []rating.Record) int {
	n := 0
	for _, r := range records {
		if r.Rating < minRating || r.Rating > maxRating {
			n++
		}
	}
	return n
}

// watchAndRebuild rebuilds on every change to the input file until ctx is
// canceled. Failed rebuilds are reported and the watch continues.
func watchAndRebuild(ctx context.Context, cfg config.Config, printer *ui.Printer) error {
	w, err := watch.New(cfg.Input, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	printer.Watching(cfg.Input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Removed {
				printer.Warn(cfg.Input + " was removed; waiting for it to reappear")
				continue
			}
			slog.Debug("input changed", "path", change.Path, "at", change.At)
			if err := buildOnce(ctx, cfg, printer); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				printer.Error(err.Error())
			}
		}
	}
}
