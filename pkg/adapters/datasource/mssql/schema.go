package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

const listTablesQuery = `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	ORDER BY table_schema, table_name
	`

const describeColumnsQuery = `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
	    CASE WHEN uq.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_unique,
	    CASE WHEN fk.parent_column_id IS NOT NULL THEN 1 ELSE 0 END AS is_foreign_key,
	    c.column_id AS ordinal_position
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT DISTINCT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	LEFT JOIN (
	    SELECT DISTINCT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_unique = 1 AND i.is_primary_key = 0
	) uq ON c.object_id = uq.object_id AND c.column_id = uq.column_id
	LEFT JOIN (
	    SELECT DISTINCT parent_object_id, parent_column_id
	    FROM sys.foreign_key_columns
	) fk ON c.object_id = fk.parent_object_id AND c.column_id = fk.parent_column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

// ListTables returns all user tables (excludes system tables).
func (a *Adapter) ListTables(ctx context.Context, allow []string) ([]datasource.TableRef, error) {
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableRef
	for rows.Next() {
		var t datasource.TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return datasource.FilterTables(tables, allow), nil
}

// DescribeColumns returns columns for a specific table.
func (a *Adapter) DescribeColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnMetadata, error) {
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, describeColumnsQuery,
		sql.Named("schema", table.Schema),
		sql.Named("table", table.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", buildFullyQualifiedName(table.Schema, table.Name), err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var col datasource.ColumnMetadata
		var isNullable, isPrimary, isUnique, isForeign int

		if err := rows.Scan(&col.ColumnName, &col.DataType, &isNullable, &isPrimary, &isUnique, &isForeign, &col.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		col.DataType = strings.ToLower(col.DataType)
		col.IsNullable = isNullable == 1
		col.IsPrimaryKey = isPrimary == 1
		col.IsUnique = isUnique == 1
		col.IsForeignKey = isForeign == 1
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// SampleRows returns up to limit rows from the table.
func (a *Adapter) SampleRows(ctx context.Context, table datasource.TableRef, limit int) (*datasource.ExecuteResult, error) {
	if limit <= 0 {
		return &datasource.ExecuteResult{ReturnsRows: true}, nil
	}

	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, buildFullyQualifiedName(table.Schema, table.Name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", buildFullyQualifiedName(table.Schema, table.Name), err)
	}
	defer rows.Close()

	return collectRows(rows)
}
