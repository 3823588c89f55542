package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore Postgres 实现
// 多文档变更（房间 + 工人 + 营地）统一在 RunInTx 中执行；
// 事务内的单行读取带 FOR UPDATE，串行化同一房间/营地的并发修改
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type pgRepos struct {
	q         dbtx
	forUpdate bool
}

func (s *PostgresStore) repos() *pgRepos {
	return &pgRepos{q: s.db}
}

func (s *PostgresStore) Camps() CampsRepository           { return s.repos() }
func (s *PostgresStore) Rooms() RoomsRepository           { return s.repos() }
func (s *PostgresStore) Workers() WorkersRepository       { return s.repos() }
func (s *PostgresStore) Personnel() PersonnelRepository   { return s.repos() }
func (s *PostgresStore) Attendance() AttendanceRepository { return s.repos() }

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgRepos{q: tx, forUpdate: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pgRepos) Camps() CampsRepository           { return r }
func (r *pgRepos) Rooms() RoomsRepository           { return r }
func (r *pgRepos) Workers() WorkersRepository       { return r }
func (r *pgRepos) Personnel() PersonnelRepository   { return r }
func (r *pgRepos) Attendance() AttendanceRepository { return r }

// lockClause returns " FOR UPDATE" for single-row reads inside a transaction.
func (r *pgRepos) lockClause() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// whereBuilder collects AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(b.args))))
}

func (b *whereBuilder) String() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
