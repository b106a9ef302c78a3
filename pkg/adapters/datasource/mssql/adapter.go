// Package mssql implements the SQL Server datasource adapter on database/sql
// with the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Dialect is SQL Server's T-SQL flavor.
var Dialect = models.SQLDialect{
	Name:             "T-SQL (SQL Server)",
	CurrentDate:      "CAST(GETDATE() AS DATE)",
	UsesTop:          true,
	DefaultSchema:    "dbo",
	IdentifierQuotes: "[]",
}

// Adapter provides SQL Server connectivity using SQL authentication.
type Adapter struct {
	params  datasource.ConnectionParams
	connMgr *datasource.ConnectionManager
	key     string
	dialer  datasource.Dialer
	logger  *zap.Logger
}

// NewAdapter creates a SQL Server adapter whose *sql.DB is owned by connMgr.
func NewAdapter(ctx context.Context, params datasource.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Adapter, error) {
	connStr := buildConnectionString(params)
	return newAdapter(ctx, params, connMgr, func(ctx context.Context) (datasource.PoolConnector, error) {
		db, err := sql.Open("sqlserver", connStr)
		if err != nil {
			return nil, fmt.Errorf("open SQL auth connection: %w", err)
		}
		if params.MaxConns > 0 {
			db.SetMaxOpenConns(int(params.MaxConns))
		}
		if params.ConnTTL > 0 {
			db.SetConnMaxIdleTime(params.ConnTTL)
		}
		return datasource.NewMSSQLPoolWrapper(db), nil
	}, logger)
}

func newAdapter(ctx context.Context, params datasource.ConnectionParams, connMgr *datasource.ConnectionManager, dialer datasource.Dialer, logger *zap.Logger) (*Adapter, error) {
	if connMgr == nil {
		return nil, fmt.Errorf("connection manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Adapter{
		params:  params,
		connMgr: connMgr,
		key:     params.Key(),
		dialer:  dialer,
		logger:  logger.Named("mssql"),
	}

	if _, err := a.db(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// db returns a pinged *sql.DB from the connection manager.
func (a *Adapter) db(ctx context.Context) (*sql.DB, error) {
	connector, err := a.connMgr.GetOrCreateConnection(ctx, a.key, a.dialer)
	if err != nil {
		return nil, err
	}
	return datasource.GetMSSQLDB(connector)
}

// TestConnection verifies connectivity and that the expected database is the one connected to.
func (a *Adapter) TestConnection(ctx context.Context) error {
	db, err := a.db(ctx)
	if err != nil {
		return err
	}

	var currentDB string
	if err := db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	if !strings.EqualFold(currentDB, a.params.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.params.Database, currentDB)
	}
	return nil
}

// Dialect implements datasource.Adapter.
func (a *Adapter) Dialect() models.SQLDialect {
	return Dialect
}

// Close is a no-op; the DB belongs to the connection manager.
func (a *Adapter) Close() error {
	return nil
}

var _ datasource.Adapter = (*Adapter)(nil)
