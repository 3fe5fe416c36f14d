package validation_test

import (
	"strings"
	"testing"

	"github.com/humanproof/humanproof/internal/validation"
)

func TestValidateKeyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "production", false},
		{"with spaces", "my staging key", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"max length", strings.Repeat("a", 64), false},
		{"too long", strings.Repeat("a", 65), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateKeyName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyName(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "example.com", false},
		{"subdomain", "app.example.co.uk", false},
		{"uppercase normalized", "EXAMPLE.COM", false},
		{"empty", "", true},
		{"with scheme", "https://example.com", true},
		{"with path", "example.com/page", true},
		{"with port", "example.com:8080", true},
		{"bare word", "localhost", true},
		{"leading dash", "-bad.example.com", true},
		{"too long", strings.Repeat("a", 250) + ".com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateDomain(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDomain(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	if got := validation.NormalizeDomain("  Example.COM "); got != "example.com" {
		t.Errorf("NormalizeDomain = %q, want example.com", got)
	}
}
