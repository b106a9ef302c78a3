package datasource

import "context"

// PoolConnector abstracts connection pool operations across database types.
type PoolConnector interface {
	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// GetType returns the database type for logging/stats
	GetType() string
}

// Dialer opens a new pool. The manager calls it on first use and on reconnect.
type Dialer func(ctx context.Context) (PoolConnector, error)
