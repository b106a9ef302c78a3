package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/retry"
)

const (
	DefaultConnectionTTL   = 10 * time.Minute
	DefaultCleanupInterval = 1 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
	DefaultPoolMaxConns    = 10
)

// ConnectionManagerConfig holds configuration for the connection manager
type ConnectionManagerConfig struct {
	// TTL closes pools idle for longer than this; the next use reconnects.
	TTL time.Duration

	// PingTimeout bounds the health check done before every use.
	PingTimeout time.Duration

	// CleanupInterval is how often idle pools are checked. Zero uses the default.
	CleanupInterval time.Duration
}

// ConnectionManager owns the datasource pools. Every use is preceded by a ping;
// an unhealthy pool is closed and replaced with exactly one reconnection attempt.
type ConnectionManager struct {
	mu              sync.RWMutex
	connections     map[string]*ManagedConnection
	ttl             time.Duration
	pingTimeout     time.Duration
	cleanupInterval time.Duration
	reconnects      atomic.Int64
	stopped         bool
	stopChan        chan struct{}
	logger          *zap.Logger
}

// ManagedConnection is a pool with its last use time.
type ManagedConnection struct {
	connector PoolConnector
	lastUsed  time.Time
	mu        sync.Mutex // serializes health checks on this pool
}

// NewConnectionManager creates a connection manager with the given configuration.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConnectionTTL
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	manager := &ConnectionManager{
		connections:     make(map[string]*ManagedConnection),
		ttl:             cfg.TTL,
		pingTimeout:     cfg.PingTimeout,
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
		logger:          logger.Named("connections"),
	}

	go manager.cleanupExpiredConnections()
	return manager
}

// GetOrCreateConnection returns a healthy pool for key, dialing when none exists.
// A first connect gets one retry (retry.ReconnectConfig). An existing pool that
// fails its ping is closed and redialed once, with no further retries.
func (m *ConnectionManager) GetOrCreateConnection(ctx context.Context, key string, dial Dialer) (PoolConnector, error) {
	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: connection manager closed", apperrors.ErrNotConnected)
	}
	managed, exists := m.connections[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()
		err := m.ping(ctx, managed.connector)
		if err == nil {
			managed.lastUsed = time.Now()
			managed.mu.Unlock()
			return managed.connector, nil
		}
		managed.mu.Unlock()

		m.logger.Warn("connection unhealthy, reconnecting",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		m.removeConnection(key, managed)
		m.reconnects.Add(1)

		return m.createConnection(ctx, key, dial, &retry.Config{MaxRetries: 0})
	}

	return m.createConnection(ctx, key, dial, retry.ReconnectConfig())
}

func (m *ConnectionManager) ping(ctx context.Context, connector PoolConnector) error {
	pingCtx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()
	return connector.Ping(pingCtx)
}

// createConnection dials and verifies a new pool.
// Caller must NOT hold m.mu (this method acquires write lock).
func (m *ConnectionManager) createConnection(ctx context.Context, key string, dial Dialer, policy *retry.Config) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, fmt.Errorf("%w: connection manager closed", apperrors.ErrNotConnected)
	}

	// Another goroutine may have reconnected while we waited for the lock.
	if managed, exists := m.connections[key]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.connector, nil
	}

	connector, err := retry.DoWithResult(ctx, policy, func() (PoolConnector, error) {
		c, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.ping(ctx, c); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		m.logger.Error("failed to connect",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("%w: connect %s: %w", apperrors.ErrNotConnected, key, err)
	}

	m.connections[key] = &ManagedConnection{
		connector: connector,
		lastUsed:  time.Now(),
	}

	m.logger.Info("created new connection pool",
		zap.String("key", key),
		zap.String("type", connector.GetType()),
	)

	return connector, nil
}

// removeConnection closes and forgets the pool for key if it is still expected.
// Caller must NOT hold m.mu lock (this method acquires write lock).
func (m *ConnectionManager) removeConnection(key string, expected *ManagedConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.connections[key]; exists && managed == expected {
		if managed.connector != nil {
			_ = managed.connector.Close()
		}
		delete(m.connections, key)
		m.logger.Debug("removed connection",
			zap.String("key", key),
		)
	}
}

// cleanupExpiredConnections runs periodically to remove expired connections.
// Runs in a background goroutine until stopChan is closed.
func (m *ConnectionManager) cleanupExpiredConnections() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup(time.Now())
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup removes connections that haven't been used within TTL.
// Lock order is manager then connection.
func (m *ConnectionManager) performCleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	var expiredKeys []string
	for key, managed := range m.connections {
		managed.mu.Lock()
		idleTime := now.Sub(managed.lastUsed)
		managed.mu.Unlock()

		if idleTime > m.ttl {
			expiredKeys = append(expiredKeys, key)
			m.logger.Debug("marking connection for cleanup",
				zap.String("key", key),
				zap.Duration("idleTime", idleTime),
				zap.Duration("ttl", m.ttl),
			)
		}
	}

	for _, key := range expiredKeys {
		_ = m.connections[key].connector.Close()
		delete(m.connections, key)
	}

	if len(expiredKeys) > 0 {
		m.logger.Info("cleaned up expired connections",
			zap.Int("count", len(expiredKeys)),
			zap.Int("remaining", len(m.connections)),
		)
	}
}

// Close closes all pools and stops the cleanup goroutine. It is idempotent.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for _, managed := range m.connections {
		if managed.connector != nil {
			_ = managed.connector.Close()
		}
	}

	m.connections = make(map[string]*ManagedConnection)
	m.logger.Info("connection manager closed")
	return nil
}

// GetStats returns statistics about the connection manager.
func (m *ConnectionManager) GetStats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalConnections: len(m.connections),
		TTLSeconds:       int(m.ttl.Seconds()),
		Reconnects:       m.reconnects.Load(),
	}

	for _, managed := range m.connections {
		managed.mu.Lock()
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		managed.mu.Unlock()
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// ConnectionStats contains statistics about the connection manager state.
type ConnectionStats struct {
	TotalConnections  int   `json:"total_connections"`
	TTLSeconds        int   `json:"ttl_seconds"`
	OldestIdleSeconds int   `json:"oldest_idle_seconds"`
	Reconnects        int64 `json:"reconnects"`
}
