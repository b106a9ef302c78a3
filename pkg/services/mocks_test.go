package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

// mockIntrospector serves a fixed schema and counts ListTables calls.
type mockIntrospector struct {
	tables  []datasource.TableRef
	columns map[string][]datasource.ColumnMetadata
	samples map[string]*datasource.ExecuteResult

	listErr     error
	describeErr error
	sampleErr   error

	// gate, when set, blocks ListTables until closed or ctx is done.
	gate chan struct{}

	listCalls   atomic.Int32
	sampleLimit atomic.Int32
	mu          sync.Mutex
	allow       []string
}

func (m *mockIntrospector) ListTables(ctx context.Context, allow []string) ([]datasource.TableRef, error) {
	m.listCalls.Add(1)
	m.mu.Lock()
	m.allow = allow
	m.mu.Unlock()
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return datasource.FilterTables(m.tables, allow), nil
}

func (m *mockIntrospector) DescribeColumns(ctx context.Context, table datasource.TableRef) ([]datasource.ColumnMetadata, error) {
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	return m.columns[table.Name], nil
}

func (m *mockIntrospector) SampleRows(ctx context.Context, table datasource.TableRef, limit int) (*datasource.ExecuteResult, error) {
	m.sampleLimit.Store(int32(limit))
	if m.sampleErr != nil {
		return nil, m.sampleErr
	}
	if r, ok := m.samples[table.Name]; ok {
		return r, nil
	}
	return &datasource.ExecuteResult{ReturnsRows: true}, nil
}

// mockStatementExecutor records statements and returns a canned outcome.
type mockStatementExecutor struct {
	result *datasource.ExecuteResult
	err    error

	mu         sync.Mutex
	statements []string
}

func (m *mockStatementExecutor) Execute(ctx context.Context, statement string) (*datasource.ExecuteResult, error) {
	m.mu.Lock()
	m.statements = append(m.statements, statement)
	m.mu.Unlock()
	return m.result, m.err
}

func (m *mockStatementExecutor) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statements...)
}
