// Package cidutil holds the content identifier contract shared by every
// checkpoint store: CIDv1, raw multicodec, sha2-256 multihash.
package cidutil

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrNotRawSHA256 reports a well-formed CID outside the store contract.
var ErrNotRawSHA256 = errors.New("cidutil: not a CIDv1 raw sha2-256 identifier")

// CIDv1RawSHA256 returns the CID string of data.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// IsRawSHA256 reports whether id follows the store contract.
func IsRawSHA256(id cid.Cid) bool {
	if !id.Defined() || id.Version() != 1 || id.Type() != cid.Raw {
		return false
	}
	p := id.Prefix()
	return p.MhType == multihash.SHA2_256 && p.MhLength == 32
}

// Parse decodes s and checks it against the store contract.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: parse %q: %w", s, err)
	}
	if !IsRawSHA256(id) {
		return cid.Undef, fmt.Errorf("%w: %s", ErrNotRawSHA256, s)
	}
	return id, nil
}
