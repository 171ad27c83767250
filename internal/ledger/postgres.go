package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent Append calls across processes. The value is arbitrary but must
// be consistent across all writers of the same database.
const advisoryLockKey = int64(7_420_118_306)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS corrections_ledger (
	seq         BIGSERIAL PRIMARY KEY,
	node_id     TEXT NOT NULL,
	before_hash TEXT NOT NULL,
	after_hash  TEXT NOT NULL,
	reason      TEXT NOT NULL,
	reporter    TEXT NOT NULL,
	prev_hash   TEXT,
	this_hash   TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists the corrections ledger to a PostgreSQL database.
// It implements the Store interface.
type PostgresStore struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	initOnce sync.Once
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Init creates the ledger table if it does not exist. CREATE TABLE IF NOT
// EXISTS makes it safe to call from concurrently starting processes, and
// calling it against an existing schema is a no-op.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: create corrections_ledger: %v", ErrSchema, err)
	}
	return nil
}

// ensureSchema self-initializes once on the first missing-relation error,
// then lets the caller retry the failed operation.
func (s *PostgresStore) ensureSchema(ctx context.Context, cause error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(cause, &pgErr) || pgErr.Code != "42P01" { // undefined_table
		return false
	}
	retried := false
	s.initOnce.Do(func() {
		if err := s.Init(ctx); err != nil {
			s.logger.Error("ledger self-init failed", zap.Error(err))
			return
		}
		s.logger.Info("ledger schema created on first use")
		retried = true
	})
	return retried
}

// Head implements Store.
func (s *PostgresStore) Head(ctx context.Context) (string, error) {
	hash, err := s.head(ctx, s.pool)
	if err != nil && s.ensureSchema(ctx, err) {
		hash, err = s.head(ctx, s.pool)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read chain head: %v", ErrSchema, err)
	}
	return hash, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) head(ctx context.Context, q querier) (string, error) {
	var hash string
	err := q.QueryRow(ctx,
		"SELECT this_hash FROM corrections_ledger ORDER BY seq DESC LIMIT 1",
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// Append implements Store.
// It acquires a PostgreSQL advisory lock, re-checks the chain tail against
// the entry's PrevHash, and inserts — all within a single transaction, so
// two writers cannot silently fork the chain.
func (s *PostgresStore) Append(ctx context.Context, e *Entry) (*Entry, error) {
	stored, err := s.append(ctx, e)
	if err != nil && s.ensureSchema(ctx, err) {
		stored, err = s.append(ctx, e)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateHash) || errors.Is(err, ErrStaleHead) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: append entry: %v", ErrSchema, err)
	}

	s.logger.Debug("ledger entry appended",
		zap.Int64("seq", stored.Seq),
		zap.String("node_id", stored.NodeID),
		zap.String("this_hash", stored.ThisHash),
	)
	return stored, nil
}

func (s *PostgresStore) append(ctx context.Context, e *Entry) (*Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent appends with a transaction-scoped advisory lock.
	// The lock is released automatically when the transaction ends.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	tail, err := s.head(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}
	if e.PrevHash != tail {
		return nil, ErrStaleHead
	}

	stored := *e
	if err := tx.QueryRow(ctx,
		`INSERT INTO corrections_ledger (node_id, before_hash, after_hash, reason, reporter, prev_hash, this_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING seq, created_at`,
		e.NodeID, e.BeforeHash, e.AfterHash, e.Reason, e.Reporter,
		nullIfEmpty(e.PrevHash), e.ThisHash,
	).Scan(&stored.Seq, &stored.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrDuplicateHash
		}
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return &stored, nil
}

// AllOrdered implements Store. Entries are streamed in seq order, suitable
// for full re-derivation of the chain.
func (s *PostgresStore) AllOrdered(ctx context.Context) ([]*Entry, error) {
	entries, err := s.allOrdered(ctx)
	if err != nil && s.ensureSchema(ctx, err) {
		entries, err = s.allOrdered(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read entries: %v", ErrSchema, err)
	}
	return entries, nil
}

func (s *PostgresStore) allOrdered(ctx context.Context) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, node_id, before_hash, after_hash, reason, reporter, prev_hash, this_hash, created_at
		 FROM corrections_ledger ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var prev *string
		if err := rows.Scan(
			&e.Seq, &e.NodeID, &e.BeforeHash, &e.AfterHash,
			&e.Reason, &e.Reporter, &prev, &e.ThisHash, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if prev != nil {
			e.PrevHash = *prev
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM corrections_ledger").Scan(&n)
	if err != nil && s.ensureSchema(ctx, err) {
		err = s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM corrections_ledger").Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count entries: %v", ErrSchema, err)
	}
	return n, nil
}

// nullIfEmpty maps the absent PrevHash ("") to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
