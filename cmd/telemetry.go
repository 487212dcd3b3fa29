package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/trustprop/internal/config"
	"github.com/papapumpkin/trustprop/internal/telemetry"
	"github.com/papapumpkin/trustprop/internal/watch"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry [file]",
	Short: "View JSONL telemetry events written by build and analyze",
	Long: `Reads and formats a telemetry file. The file defaults to the configured
telemetry_path.

With --run, only events of that run are shown.
With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "only show events for this run ID")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")

	path, err := resolveTelemetryPath(args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	feed := &eventFeed{r: bufio.NewReader(f), runID: runID}
	if err := feed.drain(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}

	if !follow {
		feed.flush(cmd.OutOrStdout())
		return nil
	}
	return tailFollow(cmd, feed, path)
}

// resolveTelemetryPath picks the file from args or the configured path.
func resolveTelemetryPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.TelemetryPath == "" {
		return "", errors.New("telemetry: no file given and telemetry_path is not configured")
	}
	return cfg.TelemetryPath, nil
}

// eventFeed reads JSONL events incrementally. A trailing line without its
// newline is held in partial until the rest of it has been written.
type eventFeed struct {
	r       *bufio.Reader
	runID   string
	partial strings.Builder
}

// drain prints every complete line currently readable.
func (f *eventFeed) drain(w io.Writer) error {
	for {
		chunk, err := f.r.ReadString('\n')
		f.partial.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		f.emit(w)
	}
}

// flush prints a held-back final line, for files that do not end in a newline.
func (f *eventFeed) flush(w io.Writer) {
	f.emit(w)
}

func (f *eventFeed) emit(w io.Writer) {
	line := strings.TrimSpace(f.partial.String())
	f.partial.Reset()
	if line != "" {
		printEvent(w, line, f.runID)
	}
}

// tailFollow prints new events each time the file changes, until the
// command's context is canceled.
func tailFollow(cmd *cobra.Command, feed *eventFeed, path string) error {
	w, err := watch.New(path, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx, cancel := setupSignalContext(cmd.Context())
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Removed {
				return fmt.Errorf("telemetry: %s was removed", path)
			}
			if err := feed.drain(cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("telemetry: read %s: %w", path, err)
			}
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
// Events from runs other than runID are skipped when runID is set.
func printEvent(w io.Writer, line, runID string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if runID != "" && evt.RunID != runID {
		return
	}

	ts := evt.Timestamp.Format(time.TimeOnly)
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", ts))
	parts = append(parts, evt.Kind)

	if evt.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", shortRunID(evt.RunID)))
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// shortRunID keeps the first block of a UUID.
func shortRunID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}
