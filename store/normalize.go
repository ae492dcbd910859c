package store

import (
	"regexp"
	"strings"
)

var (
	nonDigitRE        = regexp.MustCompile(`\D`)
	branchSeparatorRE = regexp.MustCompile(`[\s\-_]+`)
	whitespaceRE      = regexp.MustCompile(`\s+`)
)

// NormalizePhone strips every non-digit character from a phone number so
// "054-789-0123", "(054) 789-0123" and "0547890123" compare equal.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	return nonDigitRE.ReplaceAllString(phone, "")
}

// NormalizeBranch lowercases a branch name and removes spaces, hyphens and
// underscores so "Main Street", "main-street" and "MainStreet" compare equal.
func NormalizeBranch(branch string) string {
	if branch == "" {
		return ""
	}
	return branchSeparatorRE.ReplaceAllString(strings.ToLower(branch), "")
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	if email == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeText trims a string and collapses internal whitespace runs to a
// single space.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(text), " ")
}
