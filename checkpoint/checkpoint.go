// Package checkpoint persists ledger snapshots in a content-addressed store.
//
// A checkpoint is the canonical JSON encoding of a ledger.Snapshot, stored as
// a CIDv1 raw sha2-256 object. Equal states always produce the same CID.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/ipfs/go-cid"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/storage"
	"blocksui.xyz/ledger/storage/casregistry"
	"blocksui.xyz/ledger/storage/localfs"
	_ "blocksui.xyz/ledger/storage/pebblecas"
)

// ErrCorrupt is returned when stored bytes do not decode as a snapshot.
var ErrCorrupt = errors.New("checkpoint: corrupt snapshot")

// Encode returns the canonical bytes of snap.
func Encode(snap ledger.Snapshot) ([]byte, error) {
	snap.Balances = slices.Clone(snap.Balances)
	slices.SortFunc(snap.Balances, func(a, b ledger.BalanceEntry) int { return a.Account.Compare(b.Account) })
	if snap.Balances == nil {
		snap.Balances = []ledger.BalanceEntry{}
	}
	if snap.Modules == nil {
		snap.Modules = map[string]json.RawMessage{}
	}
	// encoding/json sorts map keys and compacts raw module state.
	return json.Marshal(snap)
}

// Decode parses checkpoint bytes. Unknown fields are rejected.
func Decode(b []byte) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

// Save stores snap and returns its CID.
func Save(ctx context.Context, cas storage.CAS, snap ledger.Snapshot) (cid.Cid, error) {
	b, err := Encode(snap)
	if err != nil {
		return cid.Undef, err
	}
	id, err := cas.Put(ctx, b)
	if err != nil {
		return cid.Undef, fmt.Errorf("checkpoint: save: %w", err)
	}
	return id, nil
}

// Load fetches and decodes the checkpoint id. storage.ErrNotFound is passed
// through unchanged.
func Load(ctx context.Context, cas storage.CAS, id cid.Cid) (ledger.Snapshot, error) {
	b, err := cas.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return ledger.Snapshot{}, err
		}
		return ledger.Snapshot{}, fmt.Errorf("checkpoint: load %s: %w", id, err)
	}
	return Decode(b)
}

// Options select the checkpoint store.
type Options struct {
	// Backend is a casregistry name: "localfs", "pebble" or "memory".
	Backend string
	Dir     string
	// MirrorDir, when set, replicates every checkpoint to a filesystem CAS.
	MirrorDir string
}

// Open opens the configured store. The close function is never nil.
func Open(opts Options) (storage.CAS, func() error, error) {
	primary, closeFn, err := casregistry.Open(opts.Backend, opts.Dir)
	if err != nil {
		return nil, nil, err
	}
	if opts.MirrorDir == "" {
		return primary, closeFn, nil
	}
	mirror, err := localfs.New(opts.MirrorDir)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("checkpoint: open mirror: %w", err)
	}
	return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: opts.Backend, CAS: primary},
		{Name: "mirror", CAS: mirror},
	}}, closeFn, nil
}
