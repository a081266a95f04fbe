package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Identity is an address-like caller reference.
type Identity [20]byte

// TokenID identifies a minted content token. Ids are sequential and start at 1.
type TokenID uint64

// String returns the canonical 0x-prefixed lowercase hex form.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id Identity) IsZero() bool { return id == Identity{} }

// Compare orders identities bytewise.
func (id Identity) Compare(o Identity) int { return bytes.Compare(id[:], o[:]) }

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity accepts 40 hex characters with an optional 0x prefix, in any case.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*len(id) {
		return id, fmt.Errorf("ledger: identity must be %d hex characters, got %d", 2*len(id), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return Identity{}, fmt.Errorf("ledger: invalid identity %q: %w", s, err)
	}
	return id, nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// AccountFor derives the custody account of a registry from its name: the low
// 20 bytes of Keccak-256(name).
func AccountFor(name string) Identity {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(name))
	sum := h.Sum(nil)
	var id Identity
	copy(id[:], sum[len(sum)-len(id):])
	return id
}
