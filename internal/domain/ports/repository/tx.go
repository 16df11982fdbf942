package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path; repositories fall back to the pool.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, passing the
// tx handle through the repositories' `tx` argument. The concrete type of the
// handle is infra-defined (pgx.Tx for Postgres); repositories must accept a
// nil handle and run against the pool.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
