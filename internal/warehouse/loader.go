// Package warehouse loads cleaned listing tables into PostgreSQL.
//
// A load replaces the target table's contents: the table is created when it
// does not exist, missing columns are added, existing rows are truncated and
// the new rows are streamed in with COPY, all inside one transaction.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/listingclean/internal/table"
)

// ErrRowCountMismatch is returned when COPY reports a different row count
// than the table that was sent.
var ErrRowCountMismatch = errors.New("copied row count does not match table")

// Target names the destination table.
type Target struct {
	Schema string
	Table  string
}

// Identifier returns the target as a pgx identifier.
func (t Target) Identifier() pgx.Identifier {
	if t.Schema == "" {
		return pgx.Identifier{t.Table}
	}
	return pgx.Identifier{t.Schema, t.Table}
}

func (t Target) String() string {
	return t.Identifier().Sanitize()
}

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Loader writes tables to a fixed target.
type Loader struct {
	db     Beginner
	target Target
}

// NewLoader creates a loader writing to target through db.
func NewLoader(db Beginner, target Target) *Loader {
	return &Loader{db: db, target: target}
}

// PoolOptions configures Connect.
type PoolOptions struct {
	URL      string
	MaxConns int
	MinConns int
}

// Connect opens and pings a connection pool.
func Connect(ctx context.Context, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	poolConfig.MinConns = int32(opts.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Target returns the loader's destination.
func (l *Loader) Target() Target { return l.target }

// Load replaces the target's rows with t and returns the number of rows copied.
func (l *Loader) Load(ctx context.Context, t table.Table) (int64, error) {
	if t.Width() == 0 {
		return 0, errors.New("cannot load a table without columns")
	}
	start := time.Now()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	for _, stmt := range PrepareStatements(l.target, t.Columns()) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare %s: %w", l.target, describePgError(err))
		}
	}

	n, err := tx.CopyFrom(ctx, l.target.Identifier(), t.ColumnNames(), pgx.CopyFromSlice(t.Len(), rowValues(t)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", l.target, describePgError(err))
	}
	if n != int64(t.Len()) {
		return 0, fmt.Errorf("%w: copied %d, expected %d", ErrRowCountMismatch, n, t.Len())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}

	slog.Info("warehouse load complete",
		"target", l.target.String(),
		"rows", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}

// PrepareStatements returns the DDL run before each COPY.
func PrepareStatements(target Target, cols []table.Column) []string {
	stmts := make([]string, 0, len(cols)+3)
	if target.Schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{target.Schema}.Sanitize())
	}
	stmts = append(stmts, CreateTableSQL(target, cols))
	for _, c := range cols {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			target, pgx.Identifier{c.Name}.Sanitize(), ColumnType(c.Kind)))
	}
	stmts = append(stmts, "TRUNCATE TABLE "+target.String())
	return stmts
}

// CreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for cols.
func CreateTableSQL(target Target, cols []table.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + ColumnType(c.Kind)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", target, strings.Join(defs, ", "))
}

// ColumnType maps a column kind to its PostgreSQL type.
func ColumnType(k table.Kind) string {
	switch k {
	case table.KindInteger:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// rowValues converts t's rows into COPY values; nulls become nil.
func rowValues(t table.Table) func(int) ([]any, error) {
	cols := t.Columns()
	return func(i int) ([]any, error) {
		out := make([]any, len(cols))
		for c, col := range cols {
			out[c] = t.Cell(i, c).Any(col.Kind)
		}
		return out, nil
	}
}

// describePgError adds the server's detail and hint to err when present.
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	msg := pgErr.Message
	if pgErr.Detail != "" {
		msg += " (" + pgErr.Detail + ")"
	}
	if pgErr.Hint != "" {
		msg += "; hint: " + pgErr.Hint
	}
	return fmt.Errorf("%s [%s]: %w", msg, pgErr.Code, err)
}
