package middleware

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// Input validation and sanitization utilities

var tenantRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateJPEG checks the declared name and content type of an upload.
// The bytes themselves are checked again when the upload is stored.
func ValidateJPEG(fileName, contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt != "image/jpeg" {
		return fmt.Errorf("invalid content type %q", contentType)
	}
	if ext := filepath.Ext(fileName); strings.ToLower(ext) != ".jpeg" {
		return fmt.Errorf("invalid file extension %q", ext)
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

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantRe.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateRecordID validates history record ID format (uuid)
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("record ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	return history.NormalizeLimit(limit)
}
