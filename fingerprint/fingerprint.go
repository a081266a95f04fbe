// Package fingerprint converts content identifiers to and from the fixed-width
// form stored by the content registry.
//
// A fingerprint is the 32-byte SHA-256 digest of a sha2-256 multihash. The
// two-byte multihash prefix (0x12 0x20) is stripped on the way in and
// restored on the way out, so CIDv0 strings round-trip losslessly.
package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrInvalid is returned for identifiers that are not sha2-256 multihashes
// with a 32-byte digest.
var ErrInvalid = errors.New("fingerprint: invalid content identifier")

// Size is the digest length in bytes.
const Size = 32

type Fingerprint [Size]byte

// FromCID decodes a Base58 CIDv0 ("Qm...") or any CIDv1 string.
func FromCID(s string) (Fingerprint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fingerprint{}, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if len(s) == 46 && strings.HasPrefix(s, "Qm") {
		mh, err := multihash.FromB58String(s)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return FromMultihash(mh)
	}
	c, err := cid.Decode(s)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return FromMultihash(c.Hash())
}

// MustFromCID is like FromCID but panics on error.
func MustFromCID(s string) Fingerprint {
	f, err := FromCID(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromMultihash strips the sha2-256 prefix from mh.
func FromMultihash(mh multihash.Multihash) (Fingerprint, error) {
	dec, err := multihash.Decode(mh)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if dec.Code != multihash.SHA2_256 || dec.Length != Size || len(dec.Digest) != Size {
		return Fingerprint{}, fmt.Errorf("%w: want sha2-256/32, got %s/%d", ErrInvalid, multihash.Codes[dec.Code], dec.Length)
	}
	var f Fingerprint
	copy(f[:], dec.Digest)
	return f, nil
}

// FromHex parses the bytes32 text form ("0x" + 64 hex characters).
func FromHex(s string) (Fingerprint, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 2*Size {
		return Fingerprint{}, fmt.Errorf("%w: bytes32 must be %d hex characters, got %d", ErrInvalid, 2*Size, len(s))
	}
	var f Fingerprint
	if _, err := hex.Decode(f[:], []byte(s)); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return f, nil
}

// Sum fingerprints raw bytes.
func Sum(data []byte) Fingerprint {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only fails for unknown codes or bad lengths.
		panic(err)
	}
	f, _ := FromMultihash(mh)
	return f
}

// Multihash restores the 0x1220 prefix.
func (f Fingerprint) Multihash() multihash.Multihash {
	mh := make([]byte, 0, 2+Size)
	mh = append(mh, multihash.SHA2_256, Size)
	return multihash.Multihash(append(mh, f[:]...))
}

// CID returns the Base58 CIDv0 string.
func (f Fingerprint) CID() string {
	return f.Multihash().B58String()
}

// Cid returns the CIDv0 as a go-cid value.
func (f Fingerprint) Cid() cid.Cid {
	return cid.NewCidV0(f.Multihash())
}

func (f Fingerprint) Hex() string {
	return "0x" + hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string { return f.CID() }

func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.CID()), nil
}

func (f *Fingerprint) UnmarshalText(b []byte) error {
	parsed, err := FromCID(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
