package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

// querier is satisfied by both *pgxpool.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Execute runs statement verbatim on a connection acquired for this call only.
// With ReadOnly set the statement runs inside a READ ONLY transaction.
func (a *Adapter) Execute(ctx context.Context, statement string) (*datasource.ExecuteResult, error) {
	pool, err := a.pool(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if !a.params.ReadOnly {
		return runStatement(ctx, conn, statement)
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			a.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	result, err := runStatement(ctx, tx, statement)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

func runStatement(ctx context.Context, q querier, statement string) (*datasource.ExecuteResult, error) {
	rows, err := q.Query(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// collectRows drains rows. Statements without field descriptions report the
// command tag's affected row count instead.
func collectRows(rows pgx.Rows) (*datasource.ExecuteResult, error) {
	result := &datasource.ExecuteResult{}

	fieldDescs := rows.FieldDescriptions()
	if len(fieldDescs) == 0 {
		// pgx defers execution until rows are consumed.
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during execution: %w", err)
		}
		result.RowsAffected = rows.CommandTag().RowsAffected()
		return result, nil
	}

	result.ReturnsRows = true
	result.Columns = make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		result.Columns[i] = fd.Name
	}

	result.Rows = make([][]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// normalizeValue converts pgx scan types into JSON- and display-friendly values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if f, err := val.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
		if s, err := val.Value(); err == nil {
			return s
		}
		return nil
	default:
		return v
	}
}
