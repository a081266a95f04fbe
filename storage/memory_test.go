package storage_test

import (
	"context"
	"errors"
	"testing"

	"blocksui.xyz/ledger/cidutil"
	"blocksui.xyz/ledger/storage"
	"blocksui.xyz/ledger/storage/testkit"
)

func TestMemCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.NewMemCAS()
	})
}

func TestReplicatingCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "a", CAS: storage.NewMemCAS()},
			{Name: "b", CAS: storage.NewMemCAS()},
		}}
	})
}

func TestReplicatingCAS_WritesAllAndFallsBack(t *testing.T) {
	ctx := context.Background()
	a, b := storage.NewMemCAS(), storage.NewMemCAS()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{{Name: "a", CAS: a}, {Name: "b", CAS: b}}}

	id, per, err := r.PutAll(ctx, []byte("checkpoint"))
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if per["a"] != id || per["b"] != id {
		t.Fatalf("per-backend CIDs = %v, want %s", per, id)
	}

	// Only b has this object; reads fall through a.
	only, err := b.Put(ctx, []byte("only in b"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := r.Get(ctx, only)
	if err != nil || string(got) != "only in b" {
		t.Fatalf("Get fallback = %q, %v", got, err)
	}

	if _, err := (storage.ReplicatingCAS{}).Put(ctx, []byte("x")); err == nil {
		t.Fatalf("expected error with no backends")
	}
}

func TestVerify(t *testing.T) {
	id, err := cidutil.CIDv1RawSHA256CID([]byte("a"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if err := storage.Verify(id, []byte("a")); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := storage.Verify(id, []byte("b")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Verify mismatch: got %v", err)
	}
}
