// Adapter that wires the Postgres backend into the storage-agnostic factory
// by registering a constructor at init time. Callers obtain a Repository via
// storage.New(...) without importing this package directly; a DDL
// bootstrapper is registered alongside so table creation stays
// backend-agnostic too.
package postgres

import (
	"context"

	"bulkingest/internal/schema"
	"bulkingest/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *Repository while providing a Close method that calls the close function
// returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:   cfg.DSN,
			Table: cfg.Table,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres",
		func(ctx context.Context, repo storage.Repository, contract schema.Contract, table string) error {
			return repo.Exec(ctx, CreateTableSQL(table, contract))
		})
}
