package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
)

// CandidateStatement is raw, untrusted model output.
type CandidateStatement string

// ValidatedStatement is a single read-only statement that passed extraction and
// IsReadOnlyStatement. It can only be produced by ExtractAndValidate.
type ValidatedStatement struct {
	text string
}

// String returns the statement text, terminated by exactly one semicolon.
func (v ValidatedStatement) String() string {
	return v.text
}

// IsZero reports whether v was not produced by ExtractAndValidate.
func (v ValidatedStatement) IsZero() bool {
	return v.text == ""
}

var (
	// An opening or closing fence, with optional language tag, ending its line.
	fenceLinePattern = regexp.MustCompile("(?m)```([A-Za-z0-9_+-]*)[ \t]*\r?$")

	selectKeywordPattern = regexp.MustCompile(`(?i)\bselect\b`)
)

type extractState int

const (
	inStatement extractState = iota
	trailing
)

// stripFences removes markdown code fences, with or without a language tag.
// A "tag" that is really the SELECT keyword (```SELECT on its own line) is kept.
func stripFences(raw string) string {
	text := fenceLinePattern.ReplaceAllStringFunc(raw, func(fence string) string {
		tag := strings.TrimRight(strings.TrimPrefix(fence, "```"), " \t\r")
		if strings.EqualFold(tag, "select") {
			return tag
		}
		return ""
	})
	return strings.ReplaceAll(text, "```", "")
}

// isCommentLine reports whether the remainder of a line opens with a comment marker.
func isCommentLine(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r")
	return strings.HasPrefix(rest, "--") || strings.HasPrefix(rest, "#")
}

// Extract isolates the first SQL statement in raw model output. Fences are
// removed and everything before the first word-bounded SELECT is dropped as
// preamble. From there the scanner has two states:
//
//   - in-statement: text is copied up to the first ';' outside literals and
//     comments, or up to a line that begins with a comment marker;
//   - trailing: the rest is discarded.
//
// Trailing line comments inside the body are dropped and the result ends in a
// single ';'. Extract does not decide whether the statement is safe.
func Extract(raw CandidateStatement) (string, error) {
	text := stripFences(string(raw))

	loc := selectKeywordPattern.FindStringIndex(text)
	if loc == nil {
		return "", fmt.Errorf("%w: no SELECT statement found in model output", apperrors.ErrUnsafeStatement)
	}
	state := inStatement

	var (
		body      strings.Builder
		lx        lexer
		lineStart bool
	)

	i := loc[0]
	for state == inStatement && i < len(text) {
		if lineStart && lx.inCode() && isCommentLine(text[i:]) {
			state = trailing
			break
		}

		c := text[i]
		before := lx.state
		j := lx.advance(text, i)

		switch {
		case before == lexCode && lx.state == lexLineComment:
			// Drop the comment, keep its newline.
			nl := strings.IndexByte(text[j:], '\n')
			lx.state = lexCode
			if nl < 0 {
				j = len(text)
			} else {
				j += nl
			}
		case before == lexCode && c == ';':
			body.WriteByte(';')
			state = trailing
		default:
			body.WriteString(text[i:j])
		}

		lineStart = c == '\n' && j == i+1
		i = j
	}

	if state == inStatement && lx.unterminated() {
		return "", fmt.Errorf("%w: statement ends inside a quoted string or comment", apperrors.ErrUnsafeStatement)
	}

	stmt := strings.TrimSpace(body.String())
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	return stmt + ";", nil
}

// ExtractAndValidate turns untrusted model output into the only statement form
// the executor accepts. Any failure wraps apperrors.ErrUnsafeStatement.
func ExtractAndValidate(raw CandidateStatement) (ValidatedStatement, error) {
	stmt, err := Extract(raw)
	if err != nil {
		return ValidatedStatement{}, err
	}
	if err := CheckReadOnly(stmt); err != nil {
		return ValidatedStatement{}, err
	}
	return ValidatedStatement{text: stmt}, nil
}
