package source

import "context"

// Store loads the full source snapshot for a run.
//
// Implementations:
//   - store/sqlite: SQLite tables
//   - store/postgres: PostgreSQL tables via pgx
//   - source.CSVDir: a directory of CSV exports
//   - generic/store: in-memory, for tests
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Saver is implemented by stores that can be seeded with a snapshot
// (SQLite, Postgres, memory). Used by fixtures and the import command.
type Saver interface {
	Save(ctx context.Context, snap *Snapshot) error
}
