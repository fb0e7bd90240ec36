package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

// MaxProductIDLen is the width of the product_id columns, in characters.
const MaxProductIDLen = 128

// ValidateProductID only enforces the column width; any text is a valid product id.
func ValidateProductID(id string) error {
	if n := utf8.RuneCountInString(id); n > MaxProductIDLen {
		return fmt.Errorf("productId is %d characters, max %d", n, MaxProductIDLen)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ValidateBatchSize bounds the number of frames per ingest request.
func ValidateBatchSize(n, max int) error {
	if n > max {
		return fmt.Errorf("batch of %d frames exceeds the limit of %d", n, max)
	}
	return nil
}
