package middleware

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"обычный", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"регистр схемы", "bearer abc", "abc"},
		{"без заголовка", "", ""},
		{"другая схема", "Basic dXNlcjpwYXNz", ""},
		{"только схема", "Bearer", ""},
		{"лишние пробелы", "Bearer   tok  ", "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/auth/verify", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:1234"
	if got := ClientIP(r); got != "10.0.0.5:1234" {
		t.Errorf("ClientIP без заголовков = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}

	// X-Real-Ip имеет приоритет над X-Forwarded-For.
	r.Header.Set("X-Real-Ip", "198.51.100.9")
	if got := ClientIP(r); got != "198.51.100.9" {
		t.Errorf("X-Real-Ip: got %q", got)
	}
}

func TestMaskSessionID(t *testing.T) {
	if got := MaskSessionID("0123456789abcdef"); got != "0123***" {
		t.Errorf("MaskSessionID long = %q", got)
	}
	if got := MaskSessionID("abc"); got != "****" {
		t.Errorf("MaskSessionID short = %q", got)
	}
	if got := MaskSessionID("  abcdef  "); got != "abcd***" {
		t.Errorf("MaskSessionID trims = %q", got)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.allow("k") {
			t.Fatalf("attempt %d rejected below limit", i+1)
		}
	}
	if rl.allow("k") {
		t.Error("attempt over limit must be rejected")
	}
	if !rl.allow("other") {
		t.Error("keys must not share counters")
	}
}
