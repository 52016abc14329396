package domain

import (
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses every run of other characters into "-".
func Slugify(name string) string {
	base := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(base, "-")
}

// FormatModelName turns a model id such as "gpt-4o-mini" into "Gpt 4o Mini".
func FormatModelName(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == '/'
	})

	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}

	return strings.Join(parts, " ")
}
