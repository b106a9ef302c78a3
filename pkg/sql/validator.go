// Package sql isolates and validates SQL produced by a language model.
package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
)

var (
	// ErrMultipleStatements indicates the text contains more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotSelect indicates the text does not begin with SELECT.
	ErrNotSelect = errors.New("statement does not begin with SELECT")

	leadingSelectPattern = regexp.MustCompile(`(?i)^select\b`)

	// Keywords that write, change schema or run procedures. Matched against
	// masked text, so literals, quoted identifiers and comments never trigger it.
	writeKeywordPattern = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE|CALL|COPY|INTO|VACUUM)\b`)

	// T-SQL batches run several statements without a delimiter, so server,
	// session and remote-access commands are rejected anywhere in the text.
	batchCommandPattern = regexp.MustCompile(`(?i)\b(SHUTDOWN|KILL|DENY|BACKUP|RESTORE|DBCC|WAITFOR|RECONFIGURE|USE|DECLARE|SET|OPENROWSET|OPENQUERY|OPENDATASOURCE|BULK)\b`)
)

// CheckReadOnly is the single safety gate between model output and execution.
// It accepts text only if, after trimming, it begins with SELECT (any case),
// is complete and alone, and uses no write keyword or batch command outside
// literals and comments. The error wraps apperrors.ErrUnsafeStatement.
func CheckReadOnly(stmt string) error {
	reject := func(reason error) error {
		return fmt.Errorf("%w: %w", apperrors.ErrUnsafeStatement, reason)
	}

	trimmed := strings.TrimSpace(stmt)
	if !leadingSelectPattern.MatchString(trimmed) {
		return reject(ErrNotSelect)
	}

	masked, ok := maskNonCode(trimmed)
	if !ok {
		return reject(errors.New("unterminated string literal, identifier or comment"))
	}

	code := strings.TrimRight(masked, " \t\r\n")
	code = strings.TrimSuffix(code, ";")
	if strings.Contains(code, ";") {
		return reject(ErrMultipleStatements)
	}

	if kw := writeKeywordPattern.FindString(code); kw != "" {
		return reject(fmt.Errorf("statement contains %s", strings.ToUpper(kw)))
	}
	if kw := batchCommandPattern.FindString(code); kw != "" {
		return reject(fmt.Errorf("statement contains %s", strings.ToUpper(kw)))
	}

	return nil
}

// IsReadOnlyStatement reports whether CheckReadOnly accepts stmt.
func IsReadOnlyStatement(stmt string) bool {
	return CheckReadOnly(stmt) == nil
}
