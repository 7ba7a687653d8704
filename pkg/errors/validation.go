package errors

import (
	"strings"
	"unicode"
)

// ValidateServiceType validates a service type token (e.g. "auth", "database").
// Type tokens name catalog categories and appear in service IDs, cache keys,
// and file paths, so the rules are intentionally conservative:
//   - No empty tokens
//   - Lowercase letters, digits, and hyphens only
//   - Must start with a letter
//   - Maximum length of 64 characters
func ValidateServiceType(typ string) error {
	return validateToken(typ, "service type")
}

// ValidateProviderName validates a provider token (e.g. "clerk", "postgresql").
// The same rules as ValidateServiceType apply.
func ValidateProviderName(provider string) error {
	return validateToken(provider, "provider")
}

func validateToken(tok, what string) error {
	if tok == "" {
		return New(ErrCodeInvalidRef, "%s cannot be empty", what)
	}
	if len(tok) > 64 {
		return New(ErrCodeInvalidRef, "%s too long (max 64 characters)", what)
	}
	first := rune(tok[0])
	if !unicode.IsLower(first) {
		return New(ErrCodeInvalidRef, "%s must start with a lowercase letter: %q", what, tok)
	}
	for _, r := range tok {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' {
			return New(ErrCodeInvalidRef, "%s contains invalid character %q: %q", what, r, tok)
		}
	}
	return nil
}

// ValidateCatalogPath validates a catalog file path for safety.
// It prevents path traversal and ensures a reasonable length.
func ValidateCatalogPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidCatalog, "catalog path cannot be empty")
	}
	if len(path) > 500 {
		return New(ErrCodeInvalidCatalog, "catalog path too long (max 500 characters)")
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCatalog, "catalog path contains control characters")
		}
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidCatalog, "catalog path cannot contain %q", "..")
	}
	return nil
}
