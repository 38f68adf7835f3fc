// Package storage contains the storage-agnostic contracts: the Repository
// interface, a registry of backend factories keyed by kind, and a batched
// loader that drains accepted records from the pipeline into a backend.
package storage

import (
	"context"
	"fmt"
	"sync"

	"bulkingest/internal/schema"
)

// Repository is a destination for accepted records. Backends implement their
// most efficient bulk primitive behind CopyFrom (Postgres COPY, SQLite
// transactional INSERT).
type Repository interface {
	// CopyFrom inserts rows aligned to the given column order and returns the
	// number of rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs an arbitrary statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Config is the backend-agnostic storage configuration.
type Config struct {
	Kind    string   // registered backend kind, e.g. "postgres", "sqlite"
	DSN     string   // backend connection string
	Table   string   // destination table, possibly schema-qualified
	Columns []string // ordered destination columns
}

// Factory constructs a Repository from a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
	ddlFns    = map[string]DDLBootstrapper{}
)

// Register makes a backend available under the given kind. Re-registering a
// kind replaces the previous factory. Typically called from backend packages'
// init functions; import bulkingest/internal/storage/all to get every
// built-in backend.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns a snapshot of the registered backend kinds.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	return kinds
}

// DDLBootstrapper derives a table definition from the record contract and
// applies the backend-specific DDL via repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, contract schema.Contract, table string) error

// RegisterDDL registers (or replaces) the DDLBootstrapper for a storage kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	regMu.Lock()
	defer regMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates the destination table for the given contract if the
// backend knows how. Callers stay backend-agnostic; the bootstrapper for the
// configured kind decides the column types.
func EnsureTable(ctx context.Context, kind string, repo Repository, contract schema.Contract, table string) error {
	regMu.RLock()
	fn, ok := ddlFns[kind]
	regMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%s", kind)
	}
	return fn(ctx, repo, contract, table)
}
