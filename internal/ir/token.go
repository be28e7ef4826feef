package ir

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// TokenSize is the byte length of a Token.
const TokenSize = 16

// Token is an opaque fixed-size identifier for batches and instances.
//
// Tokens are generated by callers and must be collision-free; NewToken draws
// 122 random bits from a version 4 UUID. Tokens are stored as 16-byte BLOBs.
type Token [TokenSize]byte

// NewToken returns a fresh random token.
func NewToken() Token {
	return Token(uuid.New())
}

// ParseToken parses the 32-character hex form produced by String.
// The hyphenated UUID form is accepted as well.
func ParseToken(s string) (Token, error) {
	var t Token
	if len(s) == hex.EncodedLen(TokenSize) {
		if _, err := hex.Decode(t[:], []byte(s)); err != nil {
			return Token{}, fmt.Errorf("parse token %q: %w", s, err)
		}
		return t, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Token{}, fmt.Errorf("parse token %q: %w", s, err)
	}
	return Token(u), nil
}

// String returns the lowercase hex encoding of the token.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether t is the all-zero token.
func (t Token) IsZero() bool {
	return t == Token{}
}

// Value implements driver.Valuer, storing the token as a BLOB.
func (t Token) Value() (driver.Value, error) {
	return t[:], nil
}

// Scan implements sql.Scanner for BLOB columns.
func (t *Token) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan token: unsupported type %T", src)
	}
	if len(b) != TokenSize {
		return fmt.Errorf("scan token: got %d bytes, want %d", len(b), TokenSize)
	}
	copy(t[:], b)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := ParseToken(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
