package pebblecas

import (
	"context"
	"testing"

	"blocksui.xyz/ledger/storage"
	"blocksui.xyz/ledger/storage/testkit"
)

func TestPebble_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = cas.Close() })
		return cas
	})
}

func TestPebble_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cas, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id, err := cas.Put(ctx, []byte(`{"height":3}`))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cas.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `{"height":3}` {
		t.Fatalf("Get after reopen = %q", got)
	}
}

func TestPebble_RejectsEmptyDir(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}
