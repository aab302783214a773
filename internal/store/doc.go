// Package store provides persistent storage for cergdb over SQLite or
// Postgres.
//
// # Architecture
//
// A single Store interface covers both tables:
//
//   - users: registered accounts keyed by email
//   - results: named result records with three JSON document columns
//
// SQLStore implements the interface on top of database/sql. The SQLite
// backend (modernc.org/sqlite) is self-contained and used by tests; the
// Postgres backend (pgx stdlib driver) is the production deployment and
// runs its embedded goose migrations on startup. The small dialect struct
// papers over placeholder style and timestamp encoding.
//
// # Transactions
//
// Every read-check-write sequence — submit's merge-or-insert decision,
// rename's two existence checks, delete's snapshot-and-remove — happens in
// one transaction, so concurrent requests on the same id serialize through
// the database rather than through in-process locks. The connection pool is
// capped at five connections; callers block when it is exhausted.
//
// # Merge policy
//
// Submitting an id that already exists merges field-by-field: category,
// metadata, timing and synthesis keep the incoming value only when it
// carries data (non-null, non-empty), otherwise the stored value survives.
// id and name are always overwritten and the timestamp always refreshed.
// See mergeResult.
//
// # Error Handling
//
// Sentinel errors distinguish user-facing conditions from storage failures:
//
//   - ErrUserNotFound / ErrUserExists
//   - ErrResultNotFound / ErrResultExists
//
// All methods accept context.Context; cancellation aborts the in-flight
// transaction and the driver rolls it back.
package store
