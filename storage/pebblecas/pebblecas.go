// Package pebblecas is a storage.CAS backed by a Pebble key-value store.
//
// Keys are the binary CID; values are the raw object bytes.
package pebblecas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ipfs/go-cid"

	"blocksui.xyz/ledger/cidutil"
	"blocksui.xyz/ledger/storage"
	"blocksui.xyz/ledger/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "pebble",
		Description: "Pebble key-value store (directory)",
		Open: func(dir string) (storage.CAS, func() error, error) {
			cas, err := Open(dir)
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}

type CAS struct {
	// putMu makes the exists-then-set check in Put atomic.
	putMu sync.Mutex
	db    *pebble.DB
}

var _ storage.CAS = (*CAS)(nil)

// Open opens (or creates) a store in dir.
func Open(dir string) (*CAS, error) {
	if dir == "" {
		return nil, errors.New("pebblecas: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pebblecas: create %s: %w", dir, err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebblecas: open %s: %w", dir, err)
	}
	return &CAS{db: db}, nil
}

func (c *CAS) Close() error {
	return c.db.Close()
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}

	c.putMu.Lock()
	defer c.putMu.Unlock()
	existing, err := c.read(id)
	switch {
	case err == nil:
		if !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	case !errors.Is(err, storage.ErrNotFound):
		return cid.Undef, err
	}
	if err := c.db.Set(id.Bytes(), data, pebble.Sync); err != nil {
		return cid.Undef, fmt.Errorf("pebblecas: set %s: %w", id, err)
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := c.read(id)
	if err != nil {
		return nil, err
	}
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(_ context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	_, closer, err := c.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

// read copies the value out before releasing pebble's buffer.
func (c *CAS) read(id cid.Cid) ([]byte, error) {
	v, closer, err := c.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebblecas: get %s: %w", id, err)
	}
	defer closer.Close()
	return bytes.Clone(v), nil
}
