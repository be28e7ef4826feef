package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/roach88/insertdb/internal/ir"
)

// TokenSequence hands out deterministic tokens for tests and golden
// snapshots. The n-th call to Next returns a token whose first 8 bytes are
// the sequence prefix and whose last 8 bytes hold n big-endian.
//
// Thread-safety: all methods are safe for concurrent use.
type TokenSequence struct {
	mu     sync.Mutex
	prefix [8]byte
	n      uint64
}

// NewTokenSequence creates a sequence. prefix is truncated or zero-padded to
// 8 bytes, so distinct prefixes give disjoint sequences.
func NewTokenSequence(prefix string) *TokenSequence {
	s := &TokenSequence{}
	copy(s.prefix[:], prefix)
	return s
}

// Next returns the next token. The first call returns n=1.
func (s *TokenSequence) Next() ir.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	var t ir.Token
	copy(t[:8], s.prefix[:])
	binary.BigEndian.PutUint64(t[8:], s.n)
	return t
}

// Reset restarts the sequence at 1.
func (s *TokenSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// NamedTokens binds human-readable aliases (like "B1" or "I1" in scenario
// files) to tokens from a TokenSequence. An alias gets its token on first
// use and keeps it.
type NamedTokens struct {
	mu     sync.Mutex
	seq    *TokenSequence
	byName map[string]ir.Token
	names  []string
}

// NewNamedTokens creates an empty alias table drawing from seq.
func NewNamedTokens(seq *TokenSequence) *NamedTokens {
	return &NamedTokens{seq: seq, byName: make(map[string]ir.Token)}
}

// Get returns the token bound to name, allocating one if needed.
func (n *NamedTokens) Get(name string) ir.Token {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.byName[name]; ok {
		return t
	}
	t := n.seq.Next()
	n.byName[name] = t
	n.names = append(n.names, name)
	return t
}

// Lookup returns the token bound to name without allocating.
func (n *NamedTokens) Lookup(name string) (ir.Token, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.byName[name]
	return t, ok
}

// Name returns the alias bound to t, if any.
func (n *NamedTokens) Name(t ir.Token) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for name, tok := range n.byName {
		if tok == t {
			return name, true
		}
	}
	return "", false
}

// Names returns aliases in allocation order.
func (n *NamedTokens) Names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.names...)
}
