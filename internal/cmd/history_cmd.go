package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/runger/sidecar/internal/launch"
	"github.com/runger/sidecar/internal/storage"
)

var (
	historyLimit int
	historyMode  string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Show recent worker launches",
	GroupID: groupCore,
	Long: `Show recent worker launches from the run journal.

Each launch records its run id, pid, mode, layout, the redacted command line,
and once the worker is gone its exit code and whether a close request
killed it.

Examples:
  sidecarctl history
  sidecarctl history --limit=50
  sidecarctl history --mode=embedded --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", storage.DefaultRunLimit, "Maximum number of runs to show")
	historyCmd.Flags().StringVar(&historyMode, "mode", "", "Filter by mode (standalone or embedded)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
}

var (
	historyHeaderStyle = lipgloss.NewStyle().Bold(true)
	historyOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	historyFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	historyDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, paths, _, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := launch.JournalPath(cfg, paths)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(out, "No runs recorded. Journal not found at: %s\n", dbPath)
		return nil
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := store.QueryRuns(ctx, storage.RunQuery{Mode: historyMode, Limit: historyLimit})
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}

	if historyJSON {
		if runs == nil {
			runs = []storage.Run{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprint(out, renderRuns(runs, terminalWidth(out)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%sShowing %d run(s)%s\n", colorDim, len(runs), colorReset)
	return nil
}

// renderRuns lays out runs oldest first as aligned columns. The command
// column is truncated to fit width.
func renderRuns(runs []storage.Run, width int) string {
	header := []string{"STARTED", "RUN", "PID", "MODE", "EXIT", "DURATION", "COMMAND"}
	rows := make([][]string, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		rows = append(rows, []string{
			time.UnixMilli(r.StartedAtUnixMs).Format("2006-01-02 15:04:05"),
			shortID(r.RunID),
			fmt.Sprintf("%d", r.PID),
			r.Mode,
			formatExit(r),
			formatDuration(r),
			strings.Join(r.Args, " "),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	fixed := 0
	for i := 0; i < len(widths)-1; i++ {
		fixed += widths[i] + 2
	}
	last := len(widths) - 1
	if avail := width - fixed; avail >= 10 && widths[last] > avail {
		widths[last] = avail
	}

	var b strings.Builder
	b.WriteString(formatRow(header, widths, historyHeaderStyle))
	for _, row := range rows {
		b.WriteString(formatRow(row, widths, lipgloss.NewStyle()))
	}
	return b.String()
}

func formatRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		cell = truncate(cell, widths[i])
		pad := widths[i] - lipgloss.Width(cell)
		if i == len(cells)-1 {
			pad = 0
		}
		parts[i] = style.Render(cell) + strings.Repeat(" ", pad)
	}
	return strings.Join(parts, "  ") + "\n"
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func formatExit(r storage.Run) string {
	switch {
	case r.ExitCode == nil:
		return historyDimStyle.Render("running")
	case r.Killed:
		return historyDimStyle.Render(fmt.Sprintf("%d (killed)", *r.ExitCode))
	case *r.ExitCode == 0:
		return historyOKStyle.Render("0")
	default:
		return historyFailStyle.Render(fmt.Sprintf("%d", *r.ExitCode))
	}
}

func formatDuration(r storage.Run) string {
	if r.EndedAtUnixMs == nil {
		return "-"
	}
	d := time.Duration(*r.EndedAtUnixMs-r.StartedAtUnixMs) * time.Millisecond
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
