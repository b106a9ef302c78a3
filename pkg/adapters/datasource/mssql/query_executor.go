package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	mssqldb "github.com/microsoft/go-mssqldb" // also registers the sqlserver driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

// Execute runs statement verbatim on a connection reserved for this call only.
// SQL Server has no READ ONLY transaction mode, so with ReadOnly set the
// statement runs in a transaction that is always rolled back.
func (a *Adapter) Execute(ctx context.Context, statement string) (*datasource.ExecuteResult, error) {
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve connection: %w", err)
	}
	defer conn.Close()

	if !a.params.ReadOnly {
		return runStatement(ctx, conn, statement)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			a.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	return runStatement(ctx, tx, statement)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func runStatement(ctx context.Context, q querier, statement string) (*datasource.ExecuteResult, error) {
	rows, err := q.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// collectRows drains rows. A statement without a result set is not re-executed
// to learn its affected count; RowsAffected stays zero.
func collectRows(rows *sql.Rows) (*datasource.ExecuteResult, error) {
	result := &datasource.ExecuteResult{}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	if len(columnTypes) == 0 {
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during execution: %w", err)
		}
		return result, nil
	}

	result.ReturnsRows = true
	result.Columns = make([]string, len(columnTypes))
	typeNames := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		result.Columns[i] = ct.Name()
		typeNames[i] = ct.DatabaseTypeName()
	}

	result.Rows = make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columnTypes))
		valuePtrs := make([]any, len(columnTypes))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(typeNames[i], v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// normalizeValue converts driver values into JSON- and display-friendly values.
func normalizeValue(databaseTypeName string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	switch {
	case isDecimalType(databaseTypeName):
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
		return string(b)
	case databaseTypeName == "UNIQUEIDENTIFIER":
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
		return string(b)
	default:
		return string(b)
	}
}
