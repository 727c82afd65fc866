package errors

import (
	"strings"
	"testing"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		want     string
		wantCode Code
	}{
		{"plain name", "John Doe", 0, "John Doe", ""},
		{"trims", "  Interview Item  ", 0, "Interview Item", ""},
		{"email", "john@example.com", 0, "john@example.com", ""},
		{"unicode", "Привет Мир", 10, "Привет Мир", ""},

		{"too long", strings.Repeat("a", 256), 0, "", ErrCodeInvalidInput},
		{"custom limit", "abcdef", 5, "", ErrCodeInvalidInput},
		{"sql drop", "'; DROP TABLE users; --", 0, "", ErrCodeMaliciousInput},
		{"sql lowercase", "select * from users", 0, "", ErrCodeMaliciousInput},
		{"union select", "1 UNION SELECT password", 0, "", ErrCodeMaliciousInput},
		{"comment", "name /* hidden */", 0, "", ErrCodeMaliciousInput},
		{"hash comment", "admin'#", 0, "", ErrCodeMaliciousInput},
		{"script tag", "<script>alert('xss')</script>", 0, "", ErrCodeMaliciousInput},
		{"event handler", "<img onerror=x>", 0, "", ErrCodeMaliciousInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateInput(tt.input, "field", tt.maxLen)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateInput(%q) unexpected error: %v", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("ValidateInput(%q) = %q, want %q", tt.input, got, tt.want)
				}
				return
			}
			if !Is(err, tt.wantCode) {
				t.Errorf("ValidateInput(%q) error = %v, want code %s", tt.input, err, tt.wantCode)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false, want true", err)
			}
		})
	}
}

func TestValidateInputMessageNamesField(t *testing.T) {
	_, err := ValidateInput("DROP TABLE x", "name", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := UserMessage(err); got != "name contains potentially malicious content" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "user@example.com", "user@example.com", false},
		{"uppercase and spaces", "  John@Example.COM ", "john@example.com", false},
		{"multi-level domain", "user@domain.co.uk", "user@domain.co.uk", false},
		{"plus tag", "a+b@example.io", "a+b@example.io", false},

		{"empty", "", "", true},
		{"no at", "invalid-email", "", true},
		{"no tld", "user@localhost", "", true},
		{"short tld", "user@example.c", "", true},
		{"spaces inside", "us er@example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeEmail(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.wantErr && !Is(err, ErrCodeInvalidEmail) {
				t.Errorf("SanitizeEmail(%q) code = %s, want %s", tt.input, GetCode(err), ErrCodeInvalidEmail)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"digits", "123", "123", false},
		{"alnum", "abc123", "abc123", false},
		{"trimmed", " 42 ", "42", false},

		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"injection", "'; DROP TABLE users; --", "", true},
		{"traversal", "../admin", "", true},
		{"query", "1?admin=true", "", true},
		{"dash", "a-b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/path", false},
		{"http", "http://localhost:8099", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
		{"no scheme", "example.com", true},
		{"no host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := ClampLimit(5000, 1000); got != 1000 {
		t.Errorf("ClampLimit(5000, 1000) = %d, want 1000", got)
	}
	if got := ClampLimit(0, 1000); got != 1 {
		t.Errorf("ClampLimit(0, 1000) = %d, want 1", got)
	}
	if got := ClampLimit(10, 1000); got != 10 {
		t.Errorf("ClampLimit(10, 1000) = %d, want 10", got)
	}
	if got := ClampOffset(-3); got != 0 {
		t.Errorf("ClampOffset(-3) = %d, want 0", got)
	}
	if got := ClampOffset(7); got != 7 {
		t.Errorf("ClampOffset(7) = %d, want 7", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate() = %q, want %q", got, "hello")
	}
	if got := Truncate("こんにちは世界", 5); got != "こんにちは" {
		t.Errorf("Truncate() = %q, want %q", got, "こんにちは")
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidEmail,
		ErrCodeInvalidID,
		ErrCodeInvalidConfig,
		ErrCodeInvalidURL,
		ErrCodeMaliciousInput,
		ErrCodeNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeRateLimited,
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeUpstream,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
