package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

// isolateEnv points config and state lookups at a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("INSERTDB_DATABASE", "")
	t.Setenv("INSERTDB_BUSY_TIMEOUT", "")
	t.Setenv("INSERTDB_LOG_LEVEL", "")
	return dir
}

// run executes the CLI and returns stdout, stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}
