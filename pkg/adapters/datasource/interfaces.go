package datasource

import (
	"context"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// TableRef identifies a table. Schema is always populated by introspection.
type TableRef struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// ColumnMetadata represents a discovered database column.
type ColumnMetadata struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	IsUnique        bool
	IsForeignKey    bool
	OrdinalPosition int
}

// ExecuteResult holds the outcome of one statement.
// ReturnsRows distinguishes a zero-row SELECT from a statement with no result set.
type ExecuteResult struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	ReturnsRows  bool
}

// ConnectionTester tests database connectivity.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials
	// and that the configured database is the one connected to.
	TestConnection(ctx context.Context) error

	// Close releases resources held by the adapter. Pools owned by a
	// ConnectionManager are left to the manager.
	Close() error
}

// SchemaIntrospector reads table structure and sample data.
type SchemaIntrospector interface {
	// ListTables returns user tables ordered by (schema, name). System schemas
	// are excluded. A non-empty allow list restricts the result to tables whose
	// name or schema-qualified name appears in it.
	ListTables(ctx context.Context, allow []string) ([]TableRef, error)

	// DescribeColumns returns columns in ordinal order.
	DescribeColumns(ctx context.Context, table TableRef) ([]ColumnMetadata, error)

	// SampleRows returns at most limit rows of the table.
	SampleRows(ctx context.Context, table TableRef, limit int) (*ExecuteResult, error)
}

// StatementExecutor runs a statement verbatim on an exclusively held connection.
type StatementExecutor interface {
	Execute(ctx context.Context, statement string) (*ExecuteResult, error)
}

// Adapter is everything the service needs from a datasource.
type Adapter interface {
	ConnectionTester
	SchemaIntrospector
	StatementExecutor

	// Dialect describes the datasource's SQL flavor.
	Dialect() models.SQLDialect
}

// FilterTables keeps the tables named in allow, matching either the bare name or
// schema.name case-insensitively. An empty allow list keeps everything.
func FilterTables(tables []TableRef, allow []string) []TableRef {
	if len(allow) == 0 {
		return tables
	}

	wanted := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		wanted[strings.ToLower(name)] = struct{}{}
	}

	out := make([]TableRef, 0, len(tables))
	for _, t := range tables {
		_, byName := wanted[strings.ToLower(t.Name)]
		_, byQualified := wanted[strings.ToLower(t.Schema+"."+t.Name)]
		if byName || byQualified {
			out = append(out, t)
		}
	}
	return out
}
