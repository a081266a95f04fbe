package storage

import (
	"context"

	"github.com/ipfs/go-cid"

	"blocksui.xyz/ledger/cidutil"
)

// CAS is a minimal content-addressable store for ledger checkpoints.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs are CIDv1 raw sha2-256 over the bytes written (see cidutil).
// - Get MUST return ErrNotFound when the CID is absent.
// - Get MUST verify the bytes against the requested CID.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// Verify recomputes the CID of data and compares it with id.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return err
	}
	if got != id {
		return ErrCIDMismatch
	}
	return nil
}
