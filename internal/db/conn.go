package db

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Row is the result of QueryRow. A nil Row scans as ErrNoRows.
type Row struct {
	row *sql.Row
}

func (r *Row) Scan(dest ...any) error {
	if r == nil || r.row == nil {
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool {
	if r == nil || r.rows == nil {
		return false
	}
	return r.rows.Next()
}

func (r *Rows) Scan(dest ...any) error {
	if r == nil || r.rows == nil {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func (r *Rows) Err() error {
	if r == nil || r.rows == nil {
		return nil
	}
	return r.rows.Err()
}

func (r *Rows) Close() {
	if r == nil || r.rows == nil {
		return
	}
	_ = r.rows.Close()
}

// conn runs raw SQL on a gorm handle; Pool and Tx share it.
type conn struct {
	gdb *gorm.DB
}

func (c conn) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if c.gdb == nil {
		return &Row{}
	}
	return &Row{row: c.gdb.WithContext(ctx).Raw(query, args...).Row()}
}

func (c conn) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if c.gdb == nil {
		return nil, ErrNotConfigured
	}
	rows, err := c.gdb.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

// Exec runs a statement and returns the number of affected rows.
func (c conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if c.gdb == nil {
		return 0, ErrNotConfigured
	}
	res := c.gdb.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

// Tx is a transaction opened by Pool.WithTx.
type Tx struct {
	conn
}
