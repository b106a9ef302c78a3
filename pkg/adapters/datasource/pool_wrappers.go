package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPoolWrapper lets the ConnectionManager own a *pgxpool.Pool.
type PostgresPoolWrapper struct {
	pool *pgxpool.Pool
}

func NewPostgresPoolWrapper(pool *pgxpool.Pool) *PostgresPoolWrapper {
	return &PostgresPoolWrapper{pool: pool}
}

func (w *PostgresPoolWrapper) Ping(ctx context.Context) error { return w.pool.Ping(ctx) }

func (w *PostgresPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

func (w *PostgresPoolWrapper) GetType() string { return "postgres" }

// MSSQLPoolWrapper lets the ConnectionManager own a *sql.DB opened with go-mssqldb.
type MSSQLPoolWrapper struct {
	db *sql.DB
}

func NewMSSQLPoolWrapper(db *sql.DB) *MSSQLPoolWrapper {
	return &MSSQLPoolWrapper{db: db}
}

func (w *MSSQLPoolWrapper) Ping(ctx context.Context) error { return w.db.PingContext(ctx) }

func (w *MSSQLPoolWrapper) Close() error { return w.db.Close() }

func (w *MSSQLPoolWrapper) GetType() string { return "mssql" }

// GetPostgresPool unwraps a connector handed out by the ConnectionManager.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("expected postgres pool, got %s connector", connector.GetType())
	}
	return wrapper.pool, nil
}

// GetMSSQLDB unwraps a connector handed out by the ConnectionManager.
func GetMSSQLDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*MSSQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("expected mssql pool, got %s connector", connector.GetType())
	}
	return wrapper.db, nil
}
