package utils

import (
	"html"
	"net/mail"
	"strings"
)

// Sanitize trims s and escapes HTML special characters so stored text
// renders inertly in the admin UI.
func Sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// ValidEmail reports whether s is a single bare address such as
// "ann@example.com".  Display-name forms are rejected.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}
