// Package casregistry maps checkpoint backend names to constructors.
//
// Backends register themselves in init(); a binary enables a backend by
// importing its package, often as a blank import:
//
//	import _ "blocksui.xyz/ledger/storage/pebblecas"
package casregistry

import (
	"fmt"
	"sort"
	"sync"

	"blocksui.xyz/ledger/storage"
)

type Backend struct {
	Name        string
	Description string

	// Open constructs the CAS rooted at dir. Backends that keep nothing on
	// disk ignore dir. It returns an optional close function.
	Open func(dir string) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns registered backend names, sorted.
func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Lookup returns the named backend.
func Lookup(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// Open opens the named backend. The close function is never nil.
func Open(name, dir string) (storage.CAS, func() error, error) {
	b, ok := Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("casregistry: unknown backend %q (have %v)", name, Names())
	}
	cas, closeFn, err := b.Open(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("casregistry: open %s: %w", name, err)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}
