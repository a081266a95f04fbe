package casregistry

import (
	"context"
	"slices"
	"testing"

	"blocksui.xyz/ledger/storage"
)

func TestOpenMemory(t *testing.T) {
	cas, closeFn, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	id, err := cas.Put(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, _ := cas.Has(context.Background(), id); !ok {
		t.Fatalf("Has after Put = false")
	}
}

func TestRegisterValidation(t *testing.T) {
	if err := Register(Backend{Name: "memory", Open: func(string) (storage.CAS, func() error, error) { return nil, nil, nil }}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if err := Register(Backend{Name: "no-open"}); err == nil {
		t.Fatalf("expected missing Open error")
	}
	if _, _, err := Open("nope", ""); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if !slices.Contains(Names(), "memory") {
		t.Fatalf("Names() = %v, want memory", Names())
	}
}
