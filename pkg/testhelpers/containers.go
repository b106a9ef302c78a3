// Package testhelpers provides a shared PostgreSQL container for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the image the shared test database runs.
const PostgresImage = "postgres:16-alpine"

const (
	testDatabase = "iexinternetdatacenter"
	testUser     = "askdb"
	testPassword = "test_password"
)

// seedSQL creates a small slice of the energy market schema.
const seedSQL = `
CREATE TABLE energy_bids_dam (
	id            SERIAL PRIMARY KEY,
	"Date"        DATE NOT NULL,
	"Segment"     TEXT NOT NULL,
	"Purchase Bid" NUMERIC(12,2),
	"Sell Bid"    NUMERIC(12,2),
	"MCP"         NUMERIC(10,2),
	"MCV"         NUMERIC(12,2)
);

CREATE TABLE energy_bids_rtm (
	id        SERIAL PRIMARY KEY,
	"Date"    DATE NOT NULL,
	"Segment" TEXT NOT NULL,
	"MCP"     NUMERIC(10,2)
);

INSERT INTO energy_bids_dam ("Date", "Segment", "Purchase Bid", "Sell Bid", "MCP", "MCV") VALUES
	('2024-01-01', 'Solar', 1200.50, 1100.00, 3.25, 1050.00),
	('2024-01-01', 'Non-Solar', 900.00, 950.75, 4.10, 880.00),
	('2024-01-02', 'Solar', 1300.00, 1250.25, 3.40, 1200.00),
	('2024-01-02', 'Non-Solar', 850.00, 990.00, 4.75, 840.50);

INSERT INTO energy_bids_rtm ("Date", "Segment", "MCP") VALUES
	('2024-01-01', 'Solar', 2.95);
`

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container seeded with energy market tables.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// The server restarts once after initdb; wait for the second ready line.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		testUser, testPassword, host, port, testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("database never became reachable: %w", err)
	}

	if _, err := pool.Exec(ctx, seedSQL); err != nil {
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
		Host:      host,
		Port:      port,
		User:      testUser,
		Password:  testPassword,
		Database:  testDatabase,
	}, nil
}
