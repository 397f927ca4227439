package auth

import (
	"strings"
	"testing"
)

func TestCookieSigner_RoundTrip(t *testing.T) {
	s := NewCookieSigner("test-session-secret-32bytes-long!")

	value := s.Sign("abc123")
	if !strings.HasPrefix(value, "abc123.") {
		t.Fatalf("unexpected cookie value: %q", value)
	}

	id, ok := s.Verify(value)
	if !ok || id != "abc123" {
		t.Errorf("Verify() = %q, %v", id, ok)
	}
}

func TestCookieSigner_RejectsTampered(t *testing.T) {
	s := NewCookieSigner("test-session-secret-32bytes-long!")
	other := NewCookieSigner("another-secret-of-enough-length")
	valid := s.Sign("abc123")

	tests := []struct {
		name  string
		value string
	}{
		{"空文字", ""},
		{"署名なし", "abc123"},
		{"署名が空", "abc123."},
		{"IDが空", "." + strings.SplitN(valid, ".", 2)[1]},
		{"IDの改ざん", "abc124." + strings.SplitN(valid, ".", 2)[1]},
		{"別鍵の署名", other.Sign("abc123")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := s.Verify(tt.value); ok {
				t.Errorf("Verify(%q) should fail", tt.value)
			}
		})
	}
}
