package cli

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/insertdb/internal/ir"
)

// DefaultOrderWindow is the number of recent insertions order reads by default.
const DefaultOrderWindow = 2000

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the insertion-order ranking signal",
		Long: `Print, for the N most recently accepted candidates, each sort key's
most recent insert_order. Larger values are more recent.

Examples:
  insertdb order
  insertdb order -n 50 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := rootOpts.openDB(ctx)
			if err != nil {
				return err
			}
			defer closeDB(db)

			order, err := db.InsertionOrder(ctx, n)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read insertion order", err)
			}
			return rootOpts.formatter(cmd).Emit(order, func(w io.Writer) error {
				return writeOrder(w, order)
			})
		},
	}

	cmd.Flags().IntVarP(&n, "rows", "n", DefaultOrderWindow, "number of recent insertions to read")
	return cmd
}

// writeOrder prints one key per line, most recent first.
func writeOrder(w io.Writer, order ir.InsertionOrder) error {
	if len(order) == 0 {
		_, err := fmt.Fprintln(w, "No insertions recorded.")
		return err
	}
	keys := slices.SortedFunc(maps.Keys(order), func(a, b string) int {
		return cmp.Compare(order[b], order[a])
	})
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%8d  %s\n", order[k], k); err != nil {
			return err
		}
	}
	return nil
}
