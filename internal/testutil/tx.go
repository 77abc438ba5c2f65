package testutil

import "context"

// PassthroughTx satisfies the service TxRunner by invoking the function
// directly. The in-memory stores provide their own atomicity, so tests do not
// need real transactions.
type PassthroughTx struct{}

func (PassthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
