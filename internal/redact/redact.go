// Package redact masks credentials in worker arguments before they are logged
// or written to the run journal.
package redact

import (
	"regexp"
	"strings"
)

// Pattern represents a compiled regex pattern for secret detection
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

var secretPatterns = []Pattern{
	{
		Name:        "URL Credentials",
		Regex:       regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+):[^@\s/]+@`),
		Replacement: "$1:[REDACTED]@",
	},
	{
		Name:        "JWT Token",
		Regex:       regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		Replacement: "[JWT_REDACTED]",
	},
	{
		Name:        "Property Secret",
		Regex:       regexp.MustCompile(`(?i)([\w.-]*(?:password|passwd|token|secret|api[_-]?key|credentials?))=\S+`),
		Replacement: "$1=[REDACTED]",
	},
	{
		Name:        "Bearer Token",
		Regex:       regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),
		Replacement: "Bearer [TOKEN_REDACTED]",
	},
}

// sensitiveFlag matches flags whose value is carried in the next argument,
// e.g. "--password hunter2".
var sensitiveFlag = regexp.MustCompile(`(?i)^-{1,2}[\w.-]*(?:password|passwd|token|secret|api[_-]?key)$`)

// Redactor masks secrets in strings and argument vectors.
type Redactor struct {
	patterns []Pattern
}

// New creates a Redactor with the default patterns.
func New() *Redactor {
	patterns := make([]Pattern, len(secretPatterns))
	copy(patterns, secretPatterns)
	return &Redactor{patterns: patterns}
}

// String removes sensitive data from a single string.
func (r *Redactor) String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, p := range r.patterns {
		result = p.Regex.ReplaceAllString(result, p.Replacement)
	}
	return result
}

// Args returns a redacted copy of argv. The input is never modified.
func (r *Redactor) Args(argv []string) []string {
	out := make([]string, len(argv))
	maskNext := false
	for i, arg := range argv {
		if maskNext {
			out[i] = "[REDACTED]"
			maskNext = false
			continue
		}
		if sensitiveFlag.MatchString(arg) {
			maskNext = true
		}
		out[i] = r.String(arg)
	}
	return out
}

// Default is a package-level redactor for convenience.
var Default = New()

// Args redacts argv with the default redactor.
func Args(argv []string) []string {
	return Default.Args(argv)
}

// Join redacts argv and joins it with spaces, for log output.
func Join(argv []string) string {
	return strings.Join(Default.Args(argv), " ")
}
