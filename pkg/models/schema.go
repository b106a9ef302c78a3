package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// KeyRole classifies a column's participation in keys.
type KeyRole string

const (
	KeyRoleNone    KeyRole = "none"
	KeyRolePrimary KeyRole = "primary"
	KeyRoleOther   KeyRole = "other" // unique or foreign key
)

// Label is the short marker used in the rendered schema text.
func (k KeyRole) Label() string {
	switch k {
	case KeyRolePrimary:
		return "PK"
	case KeyRoleOther:
		return "KEY"
	default:
		return ""
	}
}

// ColumnDescriptor describes one column of an introspected table.
type ColumnDescriptor struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	KeyRole  KeyRole `json:"key_role"`
	Nullable bool    `json:"nullable"`
}

// TableDescriptor is one table of a SchemaSnapshot. Schema is empty for tables in
// the datasource's default schema.
type TableDescriptor struct {
	Schema     string             `json:"schema,omitempty"`
	Name       string             `json:"name"`
	Columns    []ColumnDescriptor `json:"columns"`
	SampleRows [][]any            `json:"sample_rows,omitempty"`
}

// QualifiedName returns schema.name, or just name in the default schema.
func (t *TableDescriptor) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnNames returns column names in ordinal order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaSnapshot is a point-in-time description of the database used as
// grounding context for SQL generation. A snapshot is immutable once built.
type SchemaSnapshot struct {
	Tables     []TableDescriptor `json:"tables"`
	CapturedAt time.Time         `json:"captured_at"`
}

// Render produces the textual schema fed to the model. The output depends only
// on Tables, so equal database state renders byte-identical text.
func (s *SchemaSnapshot) Render() string {
	var b strings.Builder
	for i := range s.Tables {
		t := &s.Tables[i]
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table: %s\n", t.QualifiedName())
		for _, c := range t.Columns {
			b.WriteString(renderColumn(c))
			b.WriteString("\n")
		}
		if len(t.SampleRows) > 0 {
			b.WriteString("  Sample data:\n")
			b.WriteString(indent(RenderTable(t.ColumnNames(), t.SampleRows), "    "))
		}
	}
	return b.String()
}

func renderColumn(c ColumnDescriptor) string {
	var flags []string
	if label := c.KeyRole.Label(); label != "" {
		flags = append(flags, label)
	}
	if c.Nullable {
		flags = append(flags, "nullable")
	}
	line := fmt.Sprintf("  - %s: %s", c.Name, c.DataType)
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}
	return line
}

// RenderTable renders rows as a borderless, left-aligned text table.
func RenderTable(columns []string, rows [][]any) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(columns)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		table.Append(cells)
	}
	table.Render()
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}
