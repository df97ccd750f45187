package notification

import (
	"context"
	"database/sql"
)

// MockDB implements DB with overridable function fields. Unset fields fall
// back to empty results so a test only wires the calls it cares about.
type MockDB struct {
	ExecContextFunc     func(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContextFunc    func(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContextFunc func(ctx context.Context, query string, args ...any) Row
	BeginTxFunc         func(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

func (m *MockDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if m.ExecContextFunc != nil {
		return m.ExecContextFunc(ctx, query, args...)
	}
	return MockResult{}, nil
}

func (m *MockDB) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if m.QueryContextFunc != nil {
		return m.QueryContextFunc(ctx, query, args...)
	}
	return &MockRows{}, nil
}

func (m *MockDB) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	if m.QueryRowContextFunc != nil {
		return m.QueryRowContextFunc(ctx, query, args...)
	}
	return &MockRow{ScanFunc: func(dest ...any) error { return sql.ErrNoRows }}
}

func (m *MockDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	if m.BeginTxFunc != nil {
		return m.BeginTxFunc(ctx, opts)
	}
	return &MockTx{}, nil
}

type MockRow struct {
	ScanFunc func(dest ...any) error
}

func (r *MockRow) Scan(dest ...any) error {
	return r.ScanFunc(dest...)
}

// MockRows streams len(ScanFuncs) rows, one ScanFunc per row.
type MockRows struct {
	ScanFuncs []func(dest ...any) error
	ErrFunc   func() error
	idx       int
}

func (r *MockRows) Next() bool {
	return r.idx < len(r.ScanFuncs)
}

func (r *MockRows) Scan(dest ...any) error {
	fn := r.ScanFuncs[r.idx]
	r.idx++
	return fn(dest...)
}

func (r *MockRows) Err() error {
	if r.ErrFunc != nil {
		return r.ErrFunc()
	}
	return nil
}

func (r *MockRows) Close() error { return nil }

type MockResult struct {
	LastID   int64
	Affected int64
}

func (r MockResult) LastInsertId() (int64, error) { return r.LastID, nil }
func (r MockResult) RowsAffected() (int64, error) { return r.Affected, nil }

type MockTx struct {
	ExecContextFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)
	CommitFunc      func() error
	RollbackFunc    func() error
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.ExecContextFunc != nil {
		return t.ExecContextFunc(ctx, query, args...)
	}
	return MockResult{Affected: 1}, nil
}

func (t *MockTx) Commit() error {
	if t.CommitFunc != nil {
		return t.CommitFunc()
	}
	return nil
}

func (t *MockTx) Rollback() error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc()
	}
	return nil
}
