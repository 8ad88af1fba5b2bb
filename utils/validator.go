// utils/validator.go - Input validation
package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	codePrefixRegex = regexp.MustCompile(`[^A-Z0-9]+`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// SanitizeOptional sanitizes an optional field, mapping blank values to nil.
func SanitizeOptional(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeInput(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// SanitizeFilename strips directories and control characters from an uploaded file name.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(SanitizeInput(name), "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, base)
	if cleaned == "" || cleaned == "." || cleaned == "/" {
		return "file"
	}
	return cleaned
}

// NormalizeKeywords trims keywords and drops blanks and case-insensitive duplicates.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	normalized := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		trimmed := SanitizeInput(keyword)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		normalized = append(normalized, trimmed)
	}

	return normalized
}

// CodePrefix upper-cases code and keeps only letters and digits, returning fallback when nothing remains.
func CodePrefix(code, fallback string) string {
	prefix := codePrefixRegex.ReplaceAllString(strings.ToUpper(strings.TrimSpace(code)), "")
	if prefix == "" {
		return fallback
	}
	return prefix
}
