package service

import (
	"context"
	"database/sql"

	txcontext "agora/pkg/platform/tx"
)

// TxRunner provides the transactional boundary for identity mutations.
// Implementations wrap a database transaction or, in-memory, nothing at all:
// the memory stores are individually atomic and the guard's consistency comes
// from their Execute locks.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTx runs the function directly. Used with the in-memory stores.
type NopTx struct{}

func (NopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SQLTx runs the function inside a database transaction threaded through
// context, so every store call inside shares one snapshot.
type SQLTx struct {
	DB *sql.DB
}

func (t SQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, t.DB, fn)
}
