package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// InitResult is the JSON payload of the init command.
type InitResult struct {
	Database string `json:"database"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and schema",
		Long: `Create the insertion store at the configured path, apply pragmas and
the schema, and print the path. Running it again is harmless.

Examples:
  insertdb init
  insertdb init --db /tmp/insertions.sqlite3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			closeDB(db)

			res := InitResult{Database: db.Path()}
			return rootOpts.formatter(cmd).Emit(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Initialized insertion store at %s\n", res.Database)
				return err
			})
		},
	}
}
