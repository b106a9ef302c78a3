// Package logging builds the service logger and scrubs secrets from text that
// ends up in logs or in responses sent to callers.
package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxQueryLogLength is the maximum length of a statement or model output to log.
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// OpenAI and Anthropic style secret keys
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{16,}`)

	// user:pass@host
	userInfoPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	errorRedactions = []redaction{
		{passwordPattern, "${1}=" + RedactedText},
		{bearerPattern, "Bearer " + RedactedText},
		{apiKeyPattern, "${1}=" + RedactedText},
		{secretKeyPattern, RedactedText},
		{userInfoPattern, "://" + RedactedText + "@" + RedactedText},
	}
)

func redact(s string, rules []redaction) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeConnectionString removes credentials from a DSN before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redact(connStr, []redaction{
		{passwordPattern, "${1}=" + RedactedText},
		{userInfoPattern, "://" + RedactedText + "@" + RedactedText},
	})
}

// SanitizeError renders err with credentials, tokens and keys removed.
// Every error message that leaves the process goes through here.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error(), errorRedactions)
}

// SanitizeQuery collapses whitespace, truncates and redacts a SQL statement for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	collapsed := strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
	return redact(TruncateString(collapsed, MaxQueryLogLength), errorRedactions)
}

// TruncateString truncates s to maxLen bytes and adds an ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
