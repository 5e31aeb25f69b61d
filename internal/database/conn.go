package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"bookvalley/internal/domain"
	"bookvalley/internal/query"
)

var (
	ErrNoTransaction = errors.New("no transaction in progress")
	ErrTxInProgress  = errors.New("transaction already in progress")
	ErrReleased      = errors.New("connection already released")
)

// Conn is one pooled connection owned by a single operation. Statements are
// serialized so callers may issue them from several goroutines; each result
// set is drained before the next statement starts.
type Conn struct {
	mu       sync.Mutex
	store    *Store
	conn     *sql.Conn
	tx       *sql.Tx
	released bool
}

// Acquire takes a connection from the pool.
func (s *Store) Acquire(ctx context.Context) (domain.Conn, error) {
	c, err := s.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{store: s, conn: c}, nil
}

func (c *Conn) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.released:
		return ErrReleased
	case c.tx != nil:
		return ErrTxInProgress
	}

	tx, err := c.conn.BeginTx(ctx, c.store.txOptions())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return ErrNoTransaction
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction. Without one it does nothing.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbackLocked()
}

func (c *Conn) rollbackLocked() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Release rolls back any open transaction and returns the connection to the
// pool. Calling it again is a no-op.
func (c *Conn) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}
	c.released = true

	rbErr := c.rollbackLocked()
	if err := c.conn.Close(); err != nil {
		return errors.Join(rbErr, fmt.Errorf("failed to release connection: %w", err))
	}
	return rbErr
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *Conn) target() (execer, error) {
	if c.released {
		return nil, ErrReleased
	}
	if c.tx != nil {
		return c.tx, nil
	}
	return c.conn, nil
}

func (c *Conn) Query(ctx context.Context, req query.QueryRequest) ([]domain.Row, error) {
	if !c.store.rowLocks() {
		req.ForUpdate = false
	}
	stmt, err := req.Build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ex, err := c.target()
	if err != nil {
		return nil, err
	}

	c.store.logger.Debug().Str("sql", stmt.Text).Int("args", len(stmt.Args)).Msg("query")

	rows, err := ex.QueryContext(ctx, stmt.Text, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %v: %w", req.Tables, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (c *Conn) Insert(ctx context.Context, req query.InsertRequest) (int64, error) {
	stmt, err := req.Build()
	if err != nil {
		return 0, err
	}
	n, err := c.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", req.Table, err)
	}
	return n, nil
}

func (c *Conn) Update(ctx context.Context, req query.UpdateRequest) (int64, error) {
	stmt, err := req.Build()
	if err != nil {
		return 0, err
	}
	n, err := c.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", req.Table, err)
	}
	return n, nil
}

func (c *Conn) exec(ctx context.Context, stmt query.Statement) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, err := c.target()
	if err != nil {
		return 0, err
	}

	c.store.logger.Debug().Str("sql", stmt.Text).Int("args", len(stmt.Args)).Msg("exec")

	res, err := ex.ExecContext(ctx, stmt.Text, stmt.Args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(domain.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}
