package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insertdb/internal/idb"
	"github.com/roach88/insertdb/internal/ir"
)

var errWrite = errors.New("write failed")

// failingWriter accepts n writes and fails every write after that.
type failingWriter struct {
	n int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errWrite
	}
	w.n--
	return len(p), nil
}

func sampleStats() StatsResult {
	return StatsResult{
		Database:  "/tmp/insertions.sqlite3",
		SizeBytes: 4096,
		Counts:    idb.Counts{Sources: 1, Batches: 2, Instances: 2, Inserted: 1234},
		Sources: []ir.SourceStats{{
			Source:      "buffers",
			Instances:   2,
			Interrupted: 1,
			Inserted:    1234,
			AvgItems:    2.5,
			Q50Duration: 20 * time.Millisecond,
			Q95Duration: 40 * time.Millisecond,
			MaxDuration: 40 * time.Millisecond,
		}},
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, sampleStats()))

	out := buf.String()
	assert.Contains(t, out, "/tmp/insertions.sqlite3 (4.1 kB)")
	assert.Contains(t, out, "1 sources, 2 batches, 2 instances, 1,234 insertions")
	assert.Contains(t, strings.ToLower(out), "avg items")
	assert.Contains(t, out, "buffers")
	assert.Contains(t, out, "2.5")
	assert.Contains(t, out, "40ms")
}

func TestWriteStats_NoSources(t *testing.T) {
	res := sampleStats()
	res.Sources = nil

	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, res))
	assert.Contains(t, strings.ToLower(buf.String()), "source")
}

func TestWriteStats_WriteError(t *testing.T) {
	for _, n := range []int{0, 1} {
		err := writeStats(&failingWriter{n: n}, sampleStats())
		assert.ErrorIs(t, err, errWrite, "after %d writes", n)
	}
}
