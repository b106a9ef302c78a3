// Package prompts builds the instructions sent to the language model.
package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// placeholderTable is used in examples when no default table is configured.
const placeholderTable = "table_name"

// Options carries everything the SQL generation prompt depends on besides the
// question and schema. Now is supplied by the caller so building stays pure.
type Options struct {
	Dialect      models.SQLDialect
	DefaultTable string
	Tables       []string
	Glossary     Glossary
	Now          time.Time
}

// BuildSQLGenerationPrompt creates the prompt that asks the model to translate
// question into one read-only statement against schemaText.
func BuildSQLGenerationPrompt(question, schemaText string, opts Options) string {
	dialect := opts.Dialect.Name
	if dialect == "" {
		dialect = "SQL"
	}

	var prompt strings.Builder

	target := "SQL"
	if opts.Dialect.Name != "" {
		target = opts.Dialect.Name + " SQL"
	}
	prompt.WriteString(fmt.Sprintf("You are an expert SQL generator for an electricity market database. "+
		"Convert natural language queries to valid %s.\n\n", target))

	prompt.WriteString("Database Schema:\n")
	prompt.WriteString(strings.TrimRight(schemaText, "\n"))
	prompt.WriteString("\n\n")

	if len(opts.Glossary) > 0 {
		prompt.WriteString("Key columns explained:\n")
		for _, term := range opts.Glossary {
			prompt.WriteString(fmt.Sprintf("- %s: %s\n", term.Column, term.Meaning))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Rules:\n")
	for i, rule := range generationRules(dialect, opts) {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, rule))
	}

	table := opts.DefaultTable
	if table == "" {
		table = placeholderTable
	}
	d := opts.Dialect
	from := d.Identifier(table)
	segment, price := d.Identifier("Segment"), d.Identifier("MCP_Rs_MWh")
	prompt.WriteString("Examples:\n")
	prompt.WriteString(fmt.Sprintf("- \"Show all data\" → %s\n", d.LimitedSelect("*", from, 100)))
	prompt.WriteString(fmt.Sprintf("- \"Data for today\" → SELECT * FROM %s WHERE %s = %s;\n", from, d.Identifier("Record_Date"), currentDateExpr(d)))
	prompt.WriteString(fmt.Sprintf("- \"Average price by segment\" → SELECT %s, AVG(%s) FROM %s GROUP BY %s;\n", segment, price, from, segment))
	prompt.WriteString("\n")

	prompt.WriteString(fmt.Sprintf("Natural Language Query: %s\n\n", strings.TrimSpace(question)))
	prompt.WriteString("SQL Query:")

	return prompt.String()
}

func generationRules(dialect string, opts Options) []string {
	rules := []string{
		"Generate ONLY SELECT statements for safety",
		fmt.Sprintf("Use proper %s syntax", dialect),
	}
	if rule := quotingRule(opts.Dialect); rule != "" {
		rules = append(rules, rule)
	}
	rules = append(rules,
		"Return ONLY one SQL statement ending with a semicolon, no explanations, comments or additional text",
		"For date comparisons, use the date functions of the database or the YYYY-MM-DD format",
		fmt.Sprintf("Use %s when appropriate for large results", opts.Dialect.LimitKeyword()),
		"Common queries involve aggregations by date, hour, segment",
	)

	if !opts.Now.IsZero() {
		rules = append(rules,
			fmt.Sprintf("Current date: %s. Resolve relative dates such as \"today\", \"yesterday\" or \"last month\" from the current date (%s)",
				opts.Now.Format(time.DateOnly), currentDateExpr(opts.Dialect)),
			fmt.Sprintf("If the year is not stated, assume the current year (%d)", opts.Now.Year()),
		)
	} else {
		rules = append(rules,
			fmt.Sprintf("Resolve relative dates such as \"today\", \"yesterday\" or \"last month\" from the current date (%s)", currentDateExpr(opts.Dialect)),
			"If the year is not stated, assume the current year",
		)
	}

	rules = append(rules, "When asked for maximum, minimum or other aggregate values, don't select the Segment unless it is explicitly requested")

	if len(opts.Tables) > 0 {
		rules = append(rules, fmt.Sprintf("The tables available to you are %s", strings.Join(opts.Tables, ", ")))
	}
	if opts.DefaultTable != "" {
		rules = append(rules, fmt.Sprintf("If the table name is not specified, assume the query is for %s", opts.DefaultTable))
	}

	return rules
}

// quotingRule tells the model how to write identifiers the dialect would
// otherwise fold or misparse.
func quotingRule(d models.SQLDialect) string {
	if len(d.IdentifierQuotes) != 2 {
		return ""
	}
	if d.FoldsUnquoted {
		return fmt.Sprintf("Write table and column names exactly as shown in the schema and wrap any name containing upper-case letters, spaces or symbols in %s (for example %s or %s)",
			d.IdentifierQuotes, d.QuoteIdentifier("Segment"), d.QuoteIdentifier("Purchase Bid"))
	}
	return fmt.Sprintf("Write table and column names exactly as shown in the schema and wrap any name containing spaces or symbols in %s (for example %s)",
		d.IdentifierQuotes, d.QuoteIdentifier("Purchase Bid"))
}

func currentDateExpr(d models.SQLDialect) string {
	if d.CurrentDate == "" {
		return "CURRENT_DATE"
	}
	return d.CurrentDate
}
