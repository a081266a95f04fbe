package localfs

import (
	"blocksui.xyz/ledger/storage"
	"blocksui.xyz/ledger/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Open: func(dir string) (storage.CAS, func() error, error) {
			cas, err := New(dir)
			if err != nil {
				return nil, nil, err
			}
			return cas, nil, nil
		},
	})
}
