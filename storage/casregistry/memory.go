package casregistry

import "blocksui.xyz/ledger/storage"

func init() {
	MustRegister(Backend{
		Name:        "memory",
		Description: "In-process CAS; checkpoints are lost on exit",
		Open: func(string) (storage.CAS, func() error, error) {
			return storage.NewMemCAS(), nil, nil
		},
	})
}
