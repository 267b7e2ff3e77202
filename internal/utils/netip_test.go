package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name: "remote addr only",
			want: "192.0.2.1",
		},
		{
			name:    "untrusted headers ignored",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:    "192.0.2.1",
		},
		{
			name:       "cloudflare header first",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.9"},
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "left-most forwarded for",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "real ip",
			headers:    map[string]string{"X-Real-IP": "[2001:db8::1]:443"},
			trustProxy: true,
			want:       "2001:db8::1",
		},
		{
			name:       "trusted without headers",
			trustProxy: true,
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 127.0.0.1 ", "2001:db8::/32", "not-an-ip", ""})

	if m.IsEmpty() {
		t.Fatal("IsEmpty() = true, want false")
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.20.30.40", true},
		{"127.0.0.1", true},
		{"127.0.0.2", false},
		{"::ffff:10.1.1.1", true},
		{"2001:db8::42", true},
		{"2001:db9::1", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("NewIPMatcher(nil).IsEmpty() = false, want true")
	}
}

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"example.com":    "example.com",
		"example.com:80": "example.com",
		"[::1]:8080":     "::1",
		"10.0.0.1":       "10.0.0.1",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}
