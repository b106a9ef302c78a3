package models

import (
	"fmt"
	"strings"
)

// SQLDialect describes the syntax differences the prompt and the adapters care about.
type SQLDialect struct {
	Name          string // Human-readable name used in prompts, e.g. "PostgreSQL"
	CurrentDate   string // Expression for today's date
	UsesTop       bool   // Row limiting via TOP (n) instead of LIMIT n
	DefaultSchema string // Tables in this schema render without qualification

	// IdentifierQuotes is the opening and closing delimiter pair, `""` or `[]`.
	// Empty leaves identifiers unquoted.
	IdentifierQuotes string
	// FoldsUnquoted is set when unquoted identifiers are folded to lower case,
	// so any name with upper-case letters must be quoted.
	FoldsUnquoted bool
}

// LimitedSelect renders "SELECT columns FROM from" restricted to n rows.
func (d SQLDialect) LimitedSelect(columns, from string, n int) string {
	if d.UsesTop {
		return fmt.Sprintf("SELECT TOP (%d) %s FROM %s;", n, columns, from)
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d;", columns, from, n)
}

// LimitKeyword is the keyword used for row limiting.
func (d SQLDialect) LimitKeyword() string {
	if d.UsesTop {
		return "TOP"
	}
	return "LIMIT"
}

// QuoteIdentifier wraps name in the dialect's delimiters, doubling any closing
// delimiter inside it.
func (d SQLDialect) QuoteIdentifier(name string) string {
	if len(d.IdentifierQuotes) != 2 {
		return name
	}
	open, closing := d.IdentifierQuotes[:1], d.IdentifierQuotes[1:]
	return open + strings.ReplaceAll(name, closing, closing+closing) + closing
}

// Identifier renders a possibly schema-qualified name the way it must appear in
// a statement: each part is quoted only when the dialect would otherwise
// misread it.
func (d SQLDialect) Identifier(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if d.needsQuoting(part) {
			parts[i] = d.QuoteIdentifier(part)
		}
	}
	return strings.Join(parts, ".")
}

func (d SQLDialect) needsQuoting(part string) bool {
	if part == "" {
		return false
	}
	for i, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		case r >= 'A' && r <= 'Z':
			if d.FoldsUnquoted {
				return true
			}
		default:
			return true
		}
	}
	return false
}
