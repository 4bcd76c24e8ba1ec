package validation

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ValidateSiteURL validates a SharePoint site URL.
// The URL must be absolute, use the http or https scheme, and have a host.
func ValidateSiteURL(siteURL string) error {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return fmt.Errorf("site URL cannot be empty")
	}

	u, err := url.Parse(siteURL)
	if err != nil {
		return fmt.Errorf("invalid site URL %q: %w", siteURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid site URL %q: scheme must be http or https", siteURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid site URL %q: missing host", siteURL)
	}
	return nil
}

// ValidateSiteURLs validates a slice of site URLs.
// Returns an error if any URL in the slice is invalid.
func ValidateSiteURLs(siteURLs []string, fieldName string) error {
	for _, siteURL := range siteURLs {
		if err := ValidateSiteURL(siteURL); err != nil {
			return fmt.Errorf("%s contains invalid URL: %w", fieldName, err)
		}
	}
	return nil
}

// ValidateEmail performs basic email format validation.
// Checks for the presence of @ and validates the local and domain parts.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email format: %s (missing @)", email)
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateGUID validates that a string matches standard GUID format (8-4-4-4-12).
// Example: 12345678-1234-1234-1234-123456789012
func ValidateGUID(guid, fieldName string) error {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	// Basic GUID format: 8-4-4-4-12 hex characters
	if len(guid) != 36 {
		return fmt.Errorf("%s should be a GUID (36 characters, format: 12345678-1234-1234-1234-123456789012)", fieldName)
	}
	// Check for proper dash positions
	if guid[8] != '-' || guid[13] != '-' || guid[18] != '-' || guid[23] != '-' {
		return fmt.Errorf("%s has invalid GUID format (dashes at wrong positions)", fieldName)
	}
	return nil
}

// ValidateFilePath validates and sanitizes a file path for security and usability.
// Checks for path traversal attempts, verifies file exists and is accessible.
func ValidateFilePath(path, fieldName string) error {
	if path == "" {
		return nil // Empty is allowed for optional fields
	}

	// Clean and normalize path (resolves . and .. elements)
	cleanPath := filepath.Clean(path)

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("%s: invalid path: %w", fieldName, err)
	}

	// Relative paths must not traverse outside the working directory tree
	if !filepath.IsAbs(path) && strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%s: path contains directory traversal (..) which is not allowed", fieldName)
	}

	// Verify file exists and is accessible
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: file not found: %s", fieldName, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%s: permission denied: %s", fieldName, path)
		}
		return fmt.Errorf("%s: cannot access file: %w", fieldName, err)
	}

	// Verify it's a regular file (not a directory or special file)
	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file (is it a directory?): %s", fieldName, path)
	}

	return nil
}

// ValidateTaskName validates a task display name.
// Names cannot be empty or whitespace-only and are capped to keep list
// output and CSV exports readable.
func ValidateTaskName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if len(name) > 200 {
		return fmt.Errorf("task name too long (max 200 characters, got %d)", len(name))
	}
	return nil
}

// ValidateConnectionID validates a connection identifier slug.
// IDs are lowercase letters, digits, and hyphens.
func ValidateConnectionID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("connection ID cannot be empty")
	}
	for _, ch := range id {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-') {
			return fmt.Errorf("connection ID contains invalid character %q (use lowercase letters, digits, hyphens)", ch)
		}
	}
	if strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return fmt.Errorf("connection ID cannot start or end with a hyphen")
	}
	return nil
}
