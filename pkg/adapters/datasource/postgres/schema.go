package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

// qualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	return pgx.Identifier{schemaName, tableName}.Sanitize()
}

// ListTables returns all user tables (excludes system schemas).
func (a *Adapter) ListTables(ctx context.Context, allow []string) ([]datasource.TableRef, error) {
	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND table_schema NOT LIKE 'pg_temp_%'
		ORDER BY table_schema, table_name
	`

	pool, err := a.pool(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableRef
	for rows.Next() {
		var t datasource.TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return datasource.FilterTables(tables, allow), nil
}

// DescribeColumns returns columns for a specific table.
// Uses pg_index for primary key and unique detection, which correctly identifies
// primary keys even when created as unique indexes.
func (a *Adapter) DescribeColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			COALESCE(pk.is_pk, false) AS is_primary_key,
			COALESCE(uq.is_unique, false) AS is_unique,
			COALESCE(fk.is_fk, false) AS is_foreign_key,
			c.ordinal_position
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT DISTINCT a.attname AS column_name, true AS is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary AND n.nspname = $1 AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT DISTINCT a.attname AS column_name, true AS is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique AND NOT ix.indisprimary
			  AND n.nspname = $1 AND t.relname = $2
			  AND array_length(ix.indkey, 1) = 1
		) uq ON c.column_name = uq.column_name
		LEFT JOIN (
			SELECT DISTINCT kcu.column_name, true AS is_fk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND tc.table_schema = $1 AND tc.table_name = $2
		) fk ON c.column_name = fk.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	pool, err := a.pool(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", table.Schema, table.Name, err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &c.IsUnique, &c.IsForeignKey, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// SampleRows returns up to limit rows from the table in storage order.
func (a *Adapter) SampleRows(ctx context.Context, table datasource.TableRef, limit int) (*datasource.ExecuteResult, error) {
	if limit <= 0 {
		return &datasource.ExecuteResult{ReturnsRows: true}, nil
	}

	pool, err := a.pool(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualifiedTableName(table.Schema, table.Name), limit)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", table.Schema, table.Name, err)
	}
	defer rows.Close()

	return collectRows(rows)
}
