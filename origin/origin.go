// Package origin derives the canonical identity of a web origin.
package origin

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Hash is Keccak-256 of the UTF-8 origin string. Equal hashes are the same
// origin.
type Hash [32]byte

// Of hashes a raw origin such as "https://crcls.xyz". The string is used as
// given.
func Of(raw string) Hash {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(raw))
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ParseHash parses "0x" + 64 hex characters.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 2*len(h) {
		return Hash{}, fmt.Errorf("origin: hash must be %d hex characters, got %d", 2*len(h), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("origin: invalid hash: %w", err)
	}
	return h, nil
}

func (h Hash) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool   { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
