package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/insertdb/internal/engine"
	"github.com/roach88/insertdb/internal/idb"
	"github.com/roach88/insertdb/internal/ir"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Source      string
	Interrupted bool
	Duration    time.Duration
	Items       int
}

// RecordResult is the JSON payload of the record command.
type RecordResult struct {
	Source   string   `json:"source"`
	Batch    ir.Token `json:"batch"`
	Instance ir.Token `json:"instance"`
	Words    []string `json:"words"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record --source NAME [flags] WORD...",
		Short: "Record one completion pass and its accepted words",
		Long: `Register the source, create a batch and an instance, and append one
insertion per WORD, in order. Useful for seeding and debugging.

--items defaults to the number of words.

Examples:
  insertdb record --source buffers foo bar
  insertdb record --source lsp --duration 35ms --items 120 --interrupted fmt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source name (required)")
	_ = cmd.MarkFlagRequired("source")
	cmd.Flags().BoolVar(&opts.Interrupted, "interrupted", false, "mark the pass as interrupted")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "time the pass took")
	cmd.Flags().IntVar(&opts.Items, "items", -1, "candidates gathered (default: number of words)")

	return cmd
}

func runRecord(opts *RecordOptions, words []string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	var mu sync.Mutex
	var failures []engine.Failure
	db, err := opts.openDB(ctx, idb.WithFailureHandler(func(f engine.Failure) {
		slog.Error("write failed", "job", f.Name, "seq", f.Seq, "error", f.Err)
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}))
	if err != nil {
		return err
	}
	defer closeDB(db)

	items := opts.Items
	if items < 0 {
		items = len(words)
	}

	res := RecordResult{
		Source:   opts.Source,
		Batch:    ir.NewToken(),
		Instance: ir.NewToken(),
		Words:    words,
	}

	db.NewSource(res.Source)
	if err := db.NewBatch(ctx, res.Batch); err != nil {
		return WrapExitError(ExitFailure, "failed to create batch", err)
	}
	err = db.NewInstance(ctx, ir.Instance{
		ID:          res.Instance,
		Source:      res.Source,
		BatchID:     res.Batch,
		Interrupted: opts.Interrupted,
		Duration:    opts.Duration,
		Items:       items,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create instance", err)
	}
	for _, w := range words {
		db.Inserted(res.Instance, w)
	}
	if err := db.Flush(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to flush", err)
	}

	mu.Lock()
	failed := len(failures)
	mu.Unlock()
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d write(s) failed", failed))
	}

	slog.Debug("recorded", "source", res.Source, "batch", res.Batch, "instance", res.Instance, "words", len(words))
	return opts.formatter(cmd).Emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Recorded %d insertion(s) from %s (instance %s)\n", len(words), res.Source, res.Instance)
		return err
	})
}
