package prompts

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

var postgresDialect = models.SQLDialect{
	Name:             "PostgreSQL",
	CurrentDate:      "CURRENT_DATE",
	DefaultSchema:    "public",
	IdentifierQuotes: `""`,
	FoldsUnquoted:    true,
}

func defaultOptions() Options {
	return Options{
		Dialect:      postgresDialect,
		DefaultTable: "energy_bids_dam",
		Tables:       []string{"energy_bids_dam", "energy_bids_rtm"},
		Glossary:     DefaultGlossary(),
		Now:          time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

const schemaText = "Table: energy_bids_dam\n  - Segment: text\n  - MCP_Rs_MWh: numeric\n"

func TestBuildSQLGenerationPrompt(t *testing.T) {
	prompt := BuildSQLGenerationPrompt("  average price by segment  ", schemaText, defaultOptions())

	// Schema is embedded in full
	assert.Contains(t, prompt, "Database Schema:\n"+strings.TrimRight(schemaText, "\n")+"\n\n")

	// Glossary
	assert.Contains(t, prompt, "Key columns explained:\n")
	assert.Contains(t, prompt, "- MCP_Rs_MWh: Market Clearing Price in Rupees per MWh\n")

	// Hard constraints
	assert.Contains(t, prompt, "1. Generate ONLY SELECT statements for safety\n")
	assert.Contains(t, prompt, "Return ONLY one SQL statement")
	assert.Contains(t, prompt, "Use proper PostgreSQL syntax")

	// Policy knobs
	assert.Contains(t, prompt, "Current date: 2025-03-14.")
	assert.Contains(t, prompt, "assume the current year (2025)")
	assert.Contains(t, prompt, "don't select the Segment unless it is explicitly requested")
	assert.Contains(t, prompt, "The tables available to you are energy_bids_dam, energy_bids_rtm")
	assert.Contains(t, prompt, "assume the query is for energy_bids_dam")

	// Examples use the default table and dialect
	assert.Contains(t, prompt, "SELECT * FROM energy_bids_dam LIMIT 100;")
	assert.Contains(t, prompt, `WHERE "Record_Date" = CURRENT_DATE;`)
	assert.Contains(t, prompt, `SELECT "Segment", AVG("MCP_Rs_MWh") FROM energy_bids_dam GROUP BY "Segment";`)
	assert.Contains(t, prompt, `wrap any name containing upper-case letters, spaces or symbols in "" (for example "Segment" or "Purchase Bid")`)

	// Question is trimmed and the prompt ends with the completion cue
	assert.Contains(t, prompt, "Natural Language Query: average price by segment\n")
	assert.True(t, strings.HasSuffix(prompt, "SQL Query:"))
}

func TestBuildSQLGenerationPrompt_IsPure(t *testing.T) {
	opts := defaultOptions()
	a := BuildSQLGenerationPrompt("q", schemaText, opts)
	b := BuildSQLGenerationPrompt("q", schemaText, opts)
	assert.Equal(t, a, b)
}

func TestBuildSQLGenerationPrompt_SQLServer(t *testing.T) {
	opts := defaultOptions()
	opts.Dialect = models.SQLDialect{Name: "SQL Server", CurrentDate: "CAST(GETDATE() AS date)", UsesTop: true, DefaultSchema: "dbo", IdentifierQuotes: "[]"}

	prompt := BuildSQLGenerationPrompt("show all data", schemaText, opts)

	assert.Contains(t, prompt, "valid SQL Server SQL")
	assert.Contains(t, prompt, "Use TOP when appropriate")
	assert.Contains(t, prompt, "SELECT TOP (100) * FROM energy_bids_dam;")
	assert.Contains(t, prompt, "WHERE Record_Date = CAST(GETDATE() AS date);")
	assert.Contains(t, prompt, "SELECT Segment, AVG(MCP_Rs_MWh) FROM energy_bids_dam GROUP BY Segment;")
	assert.Contains(t, prompt, "wrap any name containing spaces or symbols in [] (for example [Purchase Bid])")
}

func TestBuildSQLGenerationPrompt_MinimalOptions(t *testing.T) {
	prompt := BuildSQLGenerationPrompt("q", schemaText, Options{})

	assert.Contains(t, prompt, "to valid SQL.\n")
	assert.NotContains(t, prompt, "Key columns explained")
	assert.NotContains(t, prompt, "tables available")
	assert.NotContains(t, prompt, "Current date:")
	assert.Contains(t, prompt, "FROM table_name LIMIT 100;")
	assert.NotContains(t, prompt, "wrap any name")
	assert.Contains(t, prompt, "1. Generate ONLY SELECT statements for safety")
}

func TestRulesAreNumberedSequentially(t *testing.T) {
	rules := generationRules("PostgreSQL", defaultOptions())
	require.Len(t, rules, 12)

	prompt := BuildSQLGenerationPrompt("q", schemaText, defaultOptions())
	for i := range rules {
		assert.Contains(t, prompt, "\n"+strconv.Itoa(i+1)+". ")
	}
}
