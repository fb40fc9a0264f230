package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var (
	tenantPattern       = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	submissionIDPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateSubmissionID validates submission ID format (lowercase UUID)
func ValidateSubmissionID(id string) error {
	if id == "" {
		return fmt.Errorf("submission ID cannot be empty")
	}
	if !submissionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid submission ID format")
	}
	return nil
}

// ValidateCodeSize rejects source code larger than max bytes; max <= 0 means no limit
func ValidateCodeSize(code string, max int64) error {
	if max > 0 && int64(len(code)) > max {
		return fmt.Errorf("source code is %d bytes, limit is %d", len(code), max)
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}

// MaxBodyBytes caps request bodies; the JSON envelope gets some room over the code limit
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit+16<<10)
			}
			next.ServeHTTP(w, r)
		})
	}
}
