package ics

import "strings"

// escapeText applies the RFC 5545 TEXT escaping rule. Backslash must be
// handled first so the backslashes introduced for newline, comma, and
// semicolon are not escaped again.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\n`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	return s
}
