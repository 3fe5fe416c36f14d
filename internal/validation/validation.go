// Package validation validates user-supplied dashboard input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var domainRe = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

// ValidateKeyName checks an API key display name.
func ValidateKeyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("name must be at most 64 characters")
	}
	return nil
}

// ValidateDomain checks a website domain like "example.com". Schemes,
// paths and ports are rejected; registration wants the bare host.
func ValidateDomain(domain string) error {
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	if strings.Contains(domain, "://") || strings.ContainsAny(domain, "/:") {
		return fmt.Errorf("domain must be a bare hostname, without scheme or path")
	}
	if len(domain) > 253 {
		return fmt.Errorf("domain is too long")
	}
	if !domainRe.MatchString(domain) {
		return fmt.Errorf("domain %q is not a valid hostname", domain)
	}
	return nil
}

// NormalizeDomain lowercases and trims a domain for storage.
func NormalizeDomain(domain string) string {
	return strings.TrimSpace(strings.ToLower(domain))
}
