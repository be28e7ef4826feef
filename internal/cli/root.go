package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/insertdb/internal/config"
	"github.com/roach88/insertdb/internal/idb"
)

// RootOptions holds global flags and the resolved configuration.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string
	Metrics    bool

	// Config is resolved in PersistentPreRunE.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the insertdb CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with args, reports a failure on stderr in the chosen
// output format, and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if opts.Metrics {
		if merr := writeMetrics(stderr); merr != nil {
			fmt.Fprintln(stderr, "Error: writing metrics:", merr)
		}
	}
	if err == nil {
		return ExitSuccess
	}

	format := opts.Format
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stderr, Verbose: opts.Verbose}
	if ferr := f.Error(ErrorCode(err), err.Error(), nil); ferr != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return GetExitCode(err)
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "insertdb",
		Short: "Completion insertion store",
		Long: `insertdb records which completion candidates a user accepted and
serves the insertion-order ranking signal.

Settings come from defaults, an optional YAML config file, INSERTDB_*
environment variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return resolveConfig(cmd, opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default $XDG_CONFIG_HOME/insertdb/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $XDG_STATE_HOME/insertdb/insertions.sqlite3)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics to stderr on exit")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd, opts
}

// resolveConfig merges config sources and installs the default logger.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) error {
	loader := config.NewLoader()
	if err := loader.BindFlag(config.KeyDatabase, cmd.Flags(), "db"); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	cfg, err := loader.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	opts.Config = cfg

	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	if file := loader.FileUsed(); file != "" {
		slog.Debug("read config", "file", file)
	}
	return nil
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openDB opens the configured database, creating its directory if needed.
func (o *RootOptions) openDB(ctx context.Context, extra ...idb.Option) (*idb.IDB, error) {
	path := o.Config.Database
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	slog.Debug("opening database", "path", path, "busy_timeout", o.Config.BusyTimeout)
	opts := append([]idb.Option{idb.WithBusyTimeout(o.Config.BusyTimeout)}, extra...)
	db, err := idb.Open(ctx, path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}

// closeDB closes db and logs a failure.
func closeDB(db *idb.IDB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
