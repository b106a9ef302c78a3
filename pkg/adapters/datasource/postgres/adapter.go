// Package postgres implements the PostgreSQL datasource adapter on pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Dialect is PostgreSQL's SQL flavor.
var Dialect = models.SQLDialect{
	Name:             "PostgreSQL",
	CurrentDate:      "CURRENT_DATE",
	DefaultSchema:    "public",
	IdentifierQuotes: `""`,
	FoldsUnquoted:    true,
}

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	params  datasource.ConnectionParams
	connStr string
	connMgr *datasource.ConnectionManager
	key     string
	logger  *zap.Logger
}

// NewAdapter creates a PostgreSQL adapter whose pool is owned by connMgr.
// The first connection is made eagerly so configuration errors surface at startup.
func NewAdapter(ctx context.Context, params datasource.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Adapter, error) {
	if connMgr == nil {
		return nil, fmt.Errorf("connection manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Adapter{
		params:  params,
		connStr: buildConnectionString(params),
		connMgr: connMgr,
		key:     params.Key(),
		logger:  logger.Named("postgres"),
	}

	if _, err := a.pool(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) dial(ctx context.Context) (datasource.PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(a.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if a.params.MaxConns > 0 {
		poolConfig.MaxConns = a.params.MaxConns
	}
	if a.params.ConnTTL > 0 {
		poolConfig.MaxConnIdleTime = a.params.ConnTTL
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return datasource.NewPostgresPoolWrapper(pool), nil
}

// pool returns a pinged pool from the connection manager.
func (a *Adapter) pool(ctx context.Context) (*pgxpool.Pool, error) {
	connector, err := a.connMgr.GetOrCreateConnection(ctx, a.key, a.dial)
	if err != nil {
		return nil, err
	}
	return datasource.GetPostgresPool(connector)
}

// TestConnection verifies connectivity and that the expected database is the one connected to.
func (a *Adapter) TestConnection(ctx context.Context) error {
	pool, err := a.pool(ctx)
	if err != nil {
		return err
	}

	var currentDB string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	// Case-insensitive to match MSSQL behavior.
	if !strings.EqualFold(currentDB, a.params.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.params.Database, currentDB)
	}
	return nil
}

// Dialect implements datasource.Adapter.
func (a *Adapter) Dialect() models.SQLDialect {
	return Dialect
}

// Close is a no-op; the pool belongs to the connection manager.
func (a *Adapter) Close() error {
	return nil
}

var _ datasource.Adapter = (*Adapter)(nil)
