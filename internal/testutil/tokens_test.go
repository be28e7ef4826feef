package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insertdb/internal/ir"
)

func TestTokenSequence_Deterministic(t *testing.T) {
	seq := NewTokenSequence("batch")

	first := seq.Next()
	assert.Equal(t, "6261746368000000"+"0000000000000001", first.String())
	assert.Equal(t, "6261746368000000"+"0000000000000002", seq.Next().String())

	seq.Reset()
	assert.Equal(t, first, seq.Next())
}

func TestTokenSequence_PrefixTruncated(t *testing.T) {
	seq := NewTokenSequence("instance-prefix")
	tok := seq.Next()
	assert.Equal(t, "instance", string(tok[:8]))
}

func TestTokenSequence_DisjointPrefixes(t *testing.T) {
	a := NewTokenSequence("a")
	b := NewTokenSequence("b")
	assert.NotEqual(t, a.Next(), b.Next())
}

func TestTokenSequence_ThreadSafe(t *testing.T) {
	seq := NewTokenSequence("t")

	var mu sync.Mutex
	seen := make(map[ir.Token]bool)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tok := seq.Next()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}

func TestNamedTokens_StableAliases(t *testing.T) {
	names := NewNamedTokens(NewTokenSequence("n"))

	b1 := names.Get("B1")
	i1 := names.Get("I1")
	assert.NotEqual(t, b1, i1)
	assert.Equal(t, b1, names.Get("B1"))
	assert.Equal(t, []string{"B1", "I1"}, names.Names())

	name, ok := names.Name(i1)
	require.True(t, ok)
	assert.Equal(t, "I1", name)
}

func TestNamedTokens_LookupDoesNotAllocate(t *testing.T) {
	names := NewNamedTokens(NewTokenSequence("n"))

	_, ok := names.Lookup("ghost")
	assert.False(t, ok)
	assert.Empty(t, names.Names())

	_, ok = names.Name(ir.NewToken())
	assert.False(t, ok)
}
