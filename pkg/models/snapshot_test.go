package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func energySnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{
		Tables: []TableDescriptor{
			{
				Name: "energy_bids_dam",
				Columns: []ColumnDescriptor{
					{Name: "Segment", DataType: "varchar(10)", KeyRole: KeyRoleOther},
					{Name: "Record_Date", DataType: "date", KeyRole: KeyRolePrimary},
					{Name: "MCP_Rs_MWh", DataType: "numeric", Nullable: true},
				},
				SampleRows: [][]any{
					{"DAM", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 4210.5},
					{"DAM", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), nil},
				},
			},
			{
				Schema: "archive",
				Name:   "energy_bids_rtm",
				Columns: []ColumnDescriptor{
					{Name: "Segment", DataType: "text", KeyRole: KeyRoleNone, Nullable: true},
				},
			},
		},
		CapturedAt: time.Now(),
	}
}

func TestSchemaSnapshot_Render(t *testing.T) {
	text := energySnapshot().Render()

	assert.True(t, strings.HasPrefix(text, "Table: energy_bids_dam\n"))
	assert.Contains(t, text, "  - Segment: varchar(10) (KEY)\n")
	assert.Contains(t, text, "  - Record_Date: date (PK)\n")
	assert.Contains(t, text, "  - MCP_Rs_MWh: numeric (nullable)\n")
	assert.Contains(t, text, "\nTable: archive.energy_bids_rtm\n")
	assert.Contains(t, text, "  - Segment: text (nullable)\n")

	assert.Contains(t, text, "  Sample data:\n")
	assert.Contains(t, text, "Record_Date", "headers are not upper-cased")
	assert.Contains(t, text, "2024-06-01")
	assert.Contains(t, text, "4210.5")
	assert.Contains(t, text, "NULL")
}

func TestSchemaSnapshot_RenderIsDeterministic(t *testing.T) {
	a := energySnapshot()
	b := energySnapshot()
	b.CapturedAt = a.CapturedAt.Add(time.Hour)

	assert.Equal(t, a.Render(), a.Render())
	assert.Equal(t, a.Render(), b.Render(), "capture time must not affect the text")
}

func TestSchemaSnapshot_RenderEmpty(t *testing.T) {
	assert.Equal(t, "", (&SchemaSnapshot{}).Render())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{nil, "NULL"},
		{"DAM", "DAM"},
		{[]byte("raw"), "raw"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC), "2024-01-02 13:04:05"},
		{3.25, "3.25"},
		{float32(1.5), "1.5"},
		{int64(7), "7"},
		{true, "true"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatValue(tt.in))
	}
}

func TestQueryResult_JSONShapes(t *testing.T) {
	decode := func(t *testing.T, r *QueryResult) map[string]any {
		t.Helper()
		data, err := json.Marshal(r)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	t.Run("rows", func(t *testing.T) {
		m := decode(t, NewRowsResult([]string{"Segment", "avg"}, [][]any{{"DAM", 4100.0}}))
		assert.Equal(t, true, m["success"])
		assert.Equal(t, []any{"Segment", "avg"}, m["columns"])
		assert.Equal(t, []any{[]any{"DAM", 4100.0}}, m["rows"])
		assert.Equal(t, 1.0, m["row_count"])
		assert.NotContains(t, m, "affected_rows")
		assert.NotContains(t, m, "error")
	})

	t.Run("rows with zero rows keeps row_count", func(t *testing.T) {
		m := decode(t, NewRowsResult([]string{"Segment"}, nil))
		assert.Equal(t, 0.0, m["row_count"])
		assert.Equal(t, []any{}, m["rows"])
	})

	t.Run("affected", func(t *testing.T) {
		m := decode(t, NewAffectedResult(0))
		assert.Equal(t, true, m["success"])
		assert.Equal(t, 0.0, m["affected_rows"])
		assert.Equal(t, ExecutedMessage, m["message"])
		assert.NotContains(t, m, "rows")
	})

	t.Run("failed", func(t *testing.T) {
		m := decode(t, NewFailedResult(`column "MCP" does not exist`))
		assert.Equal(t, false, m["success"])
		assert.Equal(t, `column "MCP" does not exist`, m["error"])
		assert.NotContains(t, m, "columns")
		assert.NotContains(t, m, "row_count")
	})
}

func TestResponseEnvelope_JSON(t *testing.T) {
	t.Run("top-level error omits sql and results", func(t *testing.T) {
		data, err := json.Marshal(&ResponseEnvelope{NaturalQuery: "q", Error: "generation unavailable"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"natural_query":"q","error":"generation unavailable"}`, string(data))
	})

	t.Run("execution failure keeps sql", func(t *testing.T) {
		env := &ResponseEnvelope{
			NaturalQuery: "q",
			GeneratedSQL: "SELECT nope FROM energy_bids_dam;",
			Results:      NewFailedResult("boom"),
		}
		data, err := json.Marshal(env)
		require.NoError(t, err)
		assert.JSONEq(t, `{"natural_query":"q","generated_sql":"SELECT nope FROM energy_bids_dam;","results":{"success":false,"error":"boom"}}`, string(data))
		assert.False(t, env.Failed())
	})
}

func TestSQLDialect_Identifier(t *testing.T) {
	postgres := SQLDialect{IdentifierQuotes: `""`, FoldsUnquoted: true}
	mssql := SQLDialect{IdentifierQuotes: "[]"}
	plain := SQLDialect{}

	tests := []struct {
		dialect SQLDialect
		name    string
		want    string
	}{
		{postgres, "energy_bids_dam", "energy_bids_dam"},
		{postgres, "Segment", `"Segment"`},
		{postgres, "Purchase Bid", `"Purchase Bid"`},
		{postgres, "public.energy_bids_dam", "public.energy_bids_dam"},
		{postgres, "Market.Bids", `"Market"."Bids"`},
		{postgres, `a"b`, `"a""b"`},
		{postgres, "1st", `"1st"`},
		{mssql, "Segment", "Segment"},
		{mssql, "Purchase Bid", "[Purchase Bid]"},
		{mssql, "a]b", "[a]]b]"},
		{plain, "Purchase Bid", "Purchase Bid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Identifier(tt.name))
		})
	}
}
