package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/insertdb/internal/idb"
	"github.com/roach88/insertdb/internal/ir"
)

// StatsResult is the JSON payload of the stats command.
type StatsResult struct {
	Database  string           `json:"database"`
	SizeBytes int64            `json:"size_bytes"`
	Counts    idb.Counts       `json:"counts"`
	Sources   []ir.SourceStats `json:"sources"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize instances and insertions per source",
		Long: `Print per-source statistics: candidate-gathering passes, how many were
interrupted, average candidate count, duration quantiles and accepted
insertions.

Examples:
  insertdb stats
  insertdb stats --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := rootOpts.openDB(ctx)
			if err != nil {
				return err
			}
			defer closeDB(db)

			sources, err := db.Summary(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to summarize", err)
			}
			counts, err := db.Counts(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to count rows", err)
			}

			res := StatsResult{
				Database: db.Path(),
				Counts:   counts,
				Sources:  sources,
			}
			if fi, err := os.Stat(db.Path()); err == nil {
				res.SizeBytes = fi.Size()
			}
			return rootOpts.formatter(cmd).Emit(res, func(w io.Writer) error {
				return writeStats(w, res)
			})
		},
	}
}

func writeStats(w io.Writer, res StatsResult) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", res.Database, humanize.Bytes(uint64(res.SizeBytes))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s sources, %s batches, %s instances, %s insertions\n\n",
		humanize.Comma(res.Counts.Sources),
		humanize.Comma(res.Counts.Batches),
		humanize.Comma(res.Counts.Instances),
		humanize.Comma(res.Counts.Inserted)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Source", "Instances", "Interrupted", "Inserted", "Avg Items", "Q50", "Q95", "Max")
	for _, s := range res.Sources {
		if err := table.Append([]string{
			s.Source,
			humanize.Comma(s.Instances),
			humanize.Comma(s.Interrupted),
			humanize.Comma(s.Inserted),
			strconv.FormatFloat(s.AvgItems, 'f', 1, 64),
			formatDuration(s.Q50Duration),
			formatDuration(s.Q95Duration),
			formatDuration(s.MaxDuration),
		}); err != nil {
			return fmt.Errorf("stats table row %s: %w", s.Source, err)
		}
	}
	return table.Render()
}

// formatDuration rounds to the millisecond; sub-millisecond values keep
// microseconds.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
