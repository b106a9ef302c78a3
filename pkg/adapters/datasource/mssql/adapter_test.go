package mssql

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

func newMockAdapter(t *testing.T, readOnly bool) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, logger)
	t.Cleanup(func() { _ = connMgr.Close() })

	params := datasource.ConnectionParams{
		Type:     "mssql",
		Host:     "sql.example.com",
		Port:     1433,
		User:     "reader",
		Database: "market",
		ReadOnly: readOnly,
	}
	adapter, err := newAdapter(context.Background(), params, connMgr, func(ctx context.Context) (datasource.PoolConnector, error) {
		return datasource.NewMSSQLPoolWrapper(db), nil
	}, logger)
	require.NoError(t, err)

	return adapter, mock
}

func TestBuildConnectionString(t *testing.T) {
	u, err := url.Parse(buildConnectionString(datasource.ConnectionParams{
		Host:     "sql.example.com",
		User:     "reader",
		Password: "p@ss;word",
		Database: "market",
		Encrypt:  "Disable",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql.example.com:1433", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss;word", pw)
	assert.Equal(t, "market", u.Query().Get("database"))
	assert.Equal(t, "disable", u.Query().Get("encrypt"))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "[dbo].[energy_bids_dam]", buildFullyQualifiedName("dbo", "energy_bids_dam"))
	assert.Equal(t, "[odd]]name]", buildFullyQualifiedName("", "odd]name"))
	assert.True(t, isDecimalType("decimal"))
	assert.False(t, isDecimalType("INT"))
}

func TestAdapter_ListTables(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	mock.ExpectQuery("FROM sys.tables").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("dbo", "energy_bids_dam").
			AddRow("dbo", "energy_bids_rtm").
			AddRow("staging", "raw_import"),
	)

	tables, err := adapter.ListTables(context.Background(), []string{"energy_bids_dam", "staging.raw_import"})
	require.NoError(t, err)
	assert.Equal(t, []datasource.TableRef{
		{Schema: "dbo", Name: "energy_bids_dam"},
		{Schema: "staging", Name: "raw_import"},
	}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DescribeColumns(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	mock.ExpectQuery("FROM sys.columns").
		WithArgs(sql.Named("schema", "dbo"), sql.Named("table", "energy_bids_dam")).
		WillReturnRows(
			sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "is_primary_key", "is_unique", "is_foreign_key", "ordinal_position"}).
				AddRow("id", "INT", 0, 1, 0, 0, 1).
				AddRow("MCP", "decimal", 1, 0, 0, 0, 2),
		)

	cols, err := adapter.DescribeColumns(context.Background(), datasource.TableRef{Schema: "dbo", Name: "energy_bids_dam"})
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, datasource.ColumnMetadata{ColumnName: "id", DataType: "int", IsPrimaryKey: true, OrdinalPosition: 1}, cols[0])
	assert.Equal(t, datasource.ColumnMetadata{ColumnName: "MCP", DataType: "decimal", IsNullable: true, OrdinalPosition: 2}, cols[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SampleRows(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	mock.ExpectQuery(`SELECT TOP \(3\) \* FROM \[dbo\]\.\[energy_bids_dam\]`).WillReturnRows(
		sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("Segment").OfType("NVARCHAR", ""),
			sqlmock.NewColumn("MCP").OfType("DECIMAL", []byte("")),
		).AddRow("Solar", []byte("3.25")),
	)

	result, err := adapter.SampleRows(context.Background(), datasource.TableRef{Schema: "dbo", Name: "energy_bids_dam"}, 3)
	require.NoError(t, err)
	assert.True(t, result.ReturnsRows)
	assert.Equal(t, []string{"Segment", "MCP"}, result.Columns)
	assert.Equal(t, [][]any{{"Solar", 3.25}}, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SampleRowsZeroLimit(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	result, err := adapter.SampleRows(context.Background(), datasource.TableRef{Schema: "dbo", Name: "t"}, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Execute_ReadOnlyRollsBack(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT TOP \(5\) \* FROM energy_bids_dam;`).WillReturnRows(
		sqlmock.NewRows([]string{"Date", "Segment"}).AddRow("2024-01-01", "Solar"),
	)
	mock.ExpectRollback()

	result, err := adapter.Execute(context.Background(), "SELECT TOP (5) * FROM energy_bids_dam;")
	require.NoError(t, err)
	assert.True(t, result.ReturnsRows)
	assert.Len(t, result.Rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Execute_ZeroRowsKeepsColumns(t *testing.T) {
	adapter, mock := newMockAdapter(t, false)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"Date", "MCP"}))

	result, err := adapter.Execute(context.Background(), "SELECT Date, MCP FROM energy_bids_dam WHERE 1 = 0;")
	require.NoError(t, err)
	assert.True(t, result.ReturnsRows)
	assert.Equal(t, []string{"Date", "MCP"}, result.Columns)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Execute_DatabaseError(t *testing.T) {
	adapter, mock := newMockAdapter(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("Invalid column name 'nope'."))
	mock.ExpectRollback()

	_, err := adapter.Execute(context.Background(), "SELECT nope FROM energy_bids_dam;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid column name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeValue(t *testing.T) {
	guid := []byte{0x00, 0x84, 0x0e, 0x55, 0x9b, 0xe2, 0xd4, 0x41, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}

	assert.Equal(t, 12.5, normalizeValue("MONEY", []byte("12.5")))
	assert.Equal(t, "n/a", normalizeValue("DECIMAL", []byte("n/a")))
	assert.Equal(t, "Solar", normalizeValue("VARCHAR", []byte("Solar")))
	assert.Equal(t, "550E8400-E29B-41D4-A716-446655440000", normalizeValue("UNIQUEIDENTIFIER", guid))
	assert.Equal(t, int64(7), normalizeValue("BIGINT", int64(7)))
	assert.Nil(t, normalizeValue("INT", nil))
}
