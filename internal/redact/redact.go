// Package redact removes sensitive detail from strings before they are logged
// or returned in error responses: connection strings, credentials, SQL
// statements, stack traces and file system paths.
package redact

import (
	"regexp"
)

// Redaction placeholders
const (
	RedactedDSNPlaceholder        = "[REDACTED_DSN]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules are applied in order; earlier rules consume text later rules would
// otherwise split, such as the path inside a connection URL.
var rules = []rule{
	// Connection URLs for the supported drivers
	{regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|pgx|sqlite3?)://\S+`), RedactedDSNPlaceholder},
	{regexp.MustCompile(`(?i)\bfile:\S+`), RedactedDSNPlaceholder},

	// key=value connection parameters and credentials
	{regexp.MustCompile(`(?i)\b(?:password|passwd|pwd|secret)\s*[=:]\s*\S+`), RedactedCredentialPlaceholder},

	// SQL statements, as built by the SQL store (upper-case keywords)
	{regexp.MustCompile(`\b(?:SELECT|INSERT INTO|UPDATE|DELETE FROM|LOCK TABLE|CREATE TABLE|DROP TABLE)\b[^;\n]*`), RedactedSQLPlaceholder},

	// Goroutine dumps
	{regexp.MustCompile(`goroutine \d+ \[[^\]]*\]:[\s\S]*`), RedactedStackPlaceholder},

	// File system paths
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(?:\\[^\\\s]+)+`), RedactedPathPlaceholder},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
