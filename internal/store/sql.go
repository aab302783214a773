// ABOUTME: SQL implementation of the Store interface shared by SQLite and Postgres
// ABOUTME: Wraps every read-check-write sequence in a single transaction

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// dialect captures the few points where SQLite and Postgres diverge.
type dialect struct {
	name    string
	noLimit string // LIMIT token meaning "all rows"
	rowLock string // suffix locking selected rows for the transaction
}

var (
	// SQLite needs no row lock clause: _txlock=immediate serializes
	// writing transactions at BEGIN.
	sqliteDialect   = dialect{name: "sqlite", noLimit: "-1"}
	postgresDialect = dialect{name: "postgres", noLimit: "ALL", rowLock: " FOR UPDATE"}
)

// q rewrites ? placeholders into $1..$n for Postgres. SQLite binds ?
// natively.
func (d dialect) q(query string) string {
	if d.name != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg converts a timestamp into the driver's preferred bind value.
// SQLite columns are plain text, so times are stored as RFC3339 strings.
func (d dialect) timeArg(t time.Time) any {
	if d.name == "sqlite" {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

// parseTime converts a scanned timestamp column back into a time.Time.
func (d dialect) parseTime(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case string:
		return time.Parse(time.RFC3339Nano, ts)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(ts))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

// SQLStore implements the Store interface on top of a database/sql pool.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

// CreateUser inserts a user if the email is not taken. The insert is
// conditional: a duplicate email returns ErrUserExists without touching the
// stored row.
func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, password_hash, name, is_admin)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, s.dialect.q(query),
		user.Email,
		user.PasswordHash,
		user.Name,
		user.IsAdmin,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	if rows == 0 {
		return ErrUserExists
	}

	s.logger.Info("user created", "email", user.Email, "is_admin", user.IsAdmin)
	return nil
}

// GetUser performs a point read by email. Absence is ErrUserNotFound,
// distinct from storage failures.
func (s *SQLStore) GetUser(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT email, password_hash, name, is_admin
		FROM users
		WHERE email = ?
	`

	user := &User{}
	err := s.db.QueryRowContext(ctx, s.dialect.q(query), email).Scan(
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.IsAdmin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

// SubmitResult inserts a new result row or merges into an existing one.
// The existence check and the write share one transaction so concurrent
// submits on the same id cannot lose fields.
func (s *SQLStore) SubmitResult(ctx context.Context, result *Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The row lock pins the read for the rest of the transaction; without
	// it two read-committed merges could both read the same version and
	// the later UPDATE would overwrite the earlier writer's fields.
	existing, err := s.scanResult(tx.QueryRowContext(ctx, s.dialect.q(`
		SELECT id, name, category, timestamp, metadata, timing, synthesis
		FROM results
		WHERE id = ?
	`+s.dialect.rowLock), result.ID))

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, s.dialect.q(`
			INSERT INTO results (id, name, category, timestamp, metadata, timing, synthesis)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`),
			result.ID,
			nullString(result.Name),
			nullString(result.Category),
			s.dialect.timeArg(s.now()),
			jsonArg(result.Metadata),
			jsonArg(result.Timing),
			jsonArg(result.Synthesis),
		)
		if err != nil {
			return fmt.Errorf("inserting result: %w", err)
		}
		s.logger.Info("result created", "id", result.ID)

	case err != nil:
		return fmt.Errorf("querying result: %w", err)

	default:
		merged := mergeResult(existing, result)
		_, err = tx.ExecContext(ctx, s.dialect.q(`
			UPDATE results
			SET name = ?, category = ?, timestamp = ?,
			    metadata = ?, timing = ?, synthesis = ?
			WHERE id = ?
		`),
			nullString(merged.Name),
			nullString(merged.Category),
			s.dialect.timeArg(s.now()),
			jsonArg(merged.Metadata),
			jsonArg(merged.Timing),
			jsonArg(merged.Synthesis),
			merged.ID,
		)
		if err != nil {
			return fmt.Errorf("updating result: %w", err)
		}
		s.logger.Info("result merged", "id", result.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing submit: %w", err)
	}
	return nil
}

// RenameResult changes a result's id. Both existence checks and the update
// observe the same transaction snapshot, so a concurrent insert of newID
// cannot slip between check and write.
func (s *SQLStore) RenameResult(ctx context.Context, currentID, newID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists string
	err = tx.QueryRowContext(ctx, s.dialect.q(`SELECT id FROM results WHERE id = ?`+s.dialect.rowLock), currentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResultNotFound
	}
	if err != nil {
		return fmt.Errorf("querying result: %w", err)
	}

	err = tx.QueryRowContext(ctx, s.dialect.q(`SELECT id FROM results WHERE id = ?`), newID).Scan(&exists)
	if err == nil {
		return ErrResultExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("querying result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.q(`UPDATE results SET id = ? WHERE id = ?`), newID, currentID); err != nil {
		if isUniqueViolation(err) {
			return ErrResultExists
		}
		return fmt.Errorf("renaming result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rename: %w", err)
	}

	s.logger.Info("result renamed", "old_id", currentID, "new_id", newID)
	return nil
}

// DeleteResult removes a result and returns the deleted snapshot.
func (s *SQLStore) DeleteResult(ctx context.Context, id string) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.scanResult(tx.QueryRowContext(ctx, s.dialect.q(`
		SELECT id, name, category, timestamp, metadata, timing, synthesis
		FROM results
		WHERE id = ?
	`+s.dialect.rowLock), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.q(`DELETE FROM results WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("deleting result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Info("result deleted", "id", id)
	return deleted, nil
}

// ListResults returns results ordered by id. A non-positive limit means no
// limit. Client-supplied filter predicates are never accepted here; the
// query shape is fixed.
func (s *SQLStore) ListResults(ctx context.Context, limit, offset int) ([]*Result, error) {
	query := `
		SELECT id, name, category, timestamp, metadata, timing, synthesis
		FROM results
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`
	// Postgres rejects a negative OFFSET; treat it as "from the start"
	// rather than surfacing a client mistake as a storage failure
	if offset < 0 {
		offset = 0
	}
	args := []any{limit, offset}
	if limit <= 0 {
		query = strings.Replace(query, "LIMIT ? OFFSET ?", "LIMIT "+s.dialect.noLimit+" OFFSET ?", 1)
		args = []any{offset}
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		r, err := s.scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	return results, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanResult(row scanner) (*Result, error) {
	var (
		r         Result
		name      sql.NullString
		category  sql.NullString
		timestamp any
		metadata  sql.NullString
		timing    sql.NullString
		synthesis sql.NullString
	)

	err := row.Scan(&r.ID, &name, &category, &timestamp, &metadata, &timing, &synthesis)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		r.Name = &name.String
	}
	if category.Valid {
		r.Category = &category.String
	}
	r.Timestamp, err = s.dialect.parseTime(timestamp)
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		r.Metadata = json.RawMessage(metadata.String)
	}
	if timing.Valid {
		r.Timing = json.RawMessage(timing.String)
	}
	if synthesis.Valid {
		r.Synthesis = json.RawMessage(synthesis.String)
	}

	return &r, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// jsonArg binds a JSON column value. Documents that carry no data are
// stored as SQL NULL so later merges treat the field as never supplied.
func jsonArg(raw json.RawMessage) any {
	if !jsonPresent(raw) {
		return nil
	}
	return string(raw)
}

// isUniqueViolation detects a unique constraint error from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc.org/sqlite reports "UNIQUE constraint failed" in the message
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
