package httpapi

import "testing"

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"  Bearer   abc123  ", "abc123", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"abc123", "", false},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("header %q: got %q, err %v", tc.header, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("header %q: expected error", tc.header)
		}
	}
}

func TestPublicAndOptionalPaths(t *testing.T) {
	if !isPublicPath("/v1/auth/login") || !isPublicPath("/healthz") {
		t.Fatal("expected public paths")
	}
	if isPublicPath("/v1/auth/me") {
		t.Fatal("/v1/auth/me must not be public")
	}
	if !isOptionalAuthPath("/dashboard") || !isOptionalAuthPath("/auth/login") {
		t.Fatal("expected optional auth paths")
	}
	if isOptionalAuthPath("/v1/auth/logout") {
		t.Fatal("/v1/auth/logout must require auth")
	}
}
