package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

func mustValidate(t *testing.T, raw string) sql.ValidatedStatement {
	t.Helper()
	stmt, err := sql.ExtractAndValidate(sql.CandidateStatement(raw))
	require.NoError(t, err)
	return stmt
}

func TestGuardedExecutor_Execute(t *testing.T) {
	tests := []struct {
		name     string
		result   *datasource.ExecuteResult
		err      error
		wantKind models.ResultKind
		wantJSON string
	}{
		{
			name: "rows",
			result: &datasource.ExecuteResult{
				Columns:     []string{"Segment", "MCP"},
				Rows:        [][]any{{"Solar", 3450.5}},
				ReturnsRows: true,
			},
			wantKind: models.ResultKindRows,
			wantJSON: `{"success":true,"columns":["Segment","MCP"],"rows":[["Solar",3450.5]],"row_count":1}`,
		},
		{
			name:     "zero rows keep columns",
			result:   &datasource.ExecuteResult{Columns: []string{"Segment"}, ReturnsRows: true},
			wantKind: models.ResultKindRows,
			wantJSON: `{"success":true,"columns":["Segment"],"rows":[],"row_count":0}`,
		},
		{
			name:     "no result set",
			result:   &datasource.ExecuteResult{RowsAffected: 3},
			wantKind: models.ResultKindAffected,
			wantJSON: `{"success":true,"affected_rows":3,"message":"Query executed successfully"}`,
		},
		{
			name:     "database error is sanitized",
			err:      errors.New(`connect to postgres://reader:hunter2@db:5432/market failed`),
			wantKind: models.ResultKindFailed,
			wantJSON: `{"success":false,"error":"connect to postgres://[REDACTED]@[REDACTED]/market failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockStatementExecutor{result: tt.result, err: tt.err}
			exec := NewGuardedExecutor(db, zap.NewNop())

			result := exec.Execute(context.Background(), mustValidate(t, "SELECT Segment, MCP FROM energy_bids_dam"))

			require.NotNil(t, result)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, []string{"SELECT Segment, MCP FROM energy_bids_dam;"}, db.Statements())

			body, err := json.Marshal(result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(body))
		})
	}
}

func TestGuardedExecutor_RejectsZeroStatement(t *testing.T) {
	db := &mockStatementExecutor{}
	exec := NewGuardedExecutor(db, zap.NewNop())

	result := exec.Execute(context.Background(), sql.ValidatedStatement{})

	assert.False(t, result.Success())
	assert.Empty(t, db.Statements())
}
