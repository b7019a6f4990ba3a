package service

import "context"

// inMemoryStoreTx is the no-op transaction runner used with in-memory
// stores: the service mutex already makes each mutating call atomic with
// respect to any other call.
type inMemoryStoreTx struct{}

func newInMemoryStoreTx() *inMemoryStoreTx { return &inMemoryStoreTx{} }

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
