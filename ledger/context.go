package ledger

import "context"

type ctxKey struct{}

var txKey = ctxKey{}

func withTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFrom extracts the in-flight transition from ctx if present.
func TxFrom(ctx context.Context) (*Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey).(*Tx)
	return tx, ok
}
