package validate

import (
	"strings"
	"testing"
)

func TestSanitizeStripsMarkupCharacters(t *testing.T) {
	inputs := []string{
		`<script>alert("x")</script>`,
		`O'Brien // <b>`,
		`plain text stays plain`,
		`"quoted" & 'single'`,
	}
	for _, in := range inputs {
		out := Sanitize(in)
		for _, raw := range []string{"<", ">", `"`, "'", "/"} {
			if strings.Contains(out, raw) {
				t.Fatalf("Sanitize(%q) = %q still contains %q", in, out, raw)
			}
		}
	}
	if got := Sanitize("hello world"); got != "hello world" {
		t.Fatalf("safe input mutated: %q", got)
	}
}

func TestSanitizeRoundTrips(t *testing.T) {
	in := `<a href="/x">it's</a>`
	out := Sanitize(in)
	decoder := strings.NewReplacer(
		"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#x27;", "'", "&#x2F;", "/",
	)
	if decoded := decoder.Replace(out); decoded != in {
		t.Fatalf("entity decode mismatch: %q != %q", decoded, in)
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "Email is required"},
		{"not-an-email", "Please enter a valid email address"},
		{"a b@example.com", "Please enter a valid email address"},
		{"user@example", "Please enter a valid email address"},
		{strings.Repeat("a", 250) + "@example.com", "Email must be less than 255 characters"},
		{"user@example.com", ""},
	}
	for _, c := range cases {
		if got := Email(c.in); got != c.want {
			t.Fatalf("Email(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestPasswordOrdering(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "Password is required"},
		// Length failures win before character-class failures.
		{"short", "Password must be at least 8 characters long"},
		{strings.Repeat("Aa1", 50), "Password must be less than 128 characters"},
		{"ALLUPPER1", "Password must contain at least one lowercase letter"},
		{"alllower1", "Password must contain at least one uppercase letter"},
		{"NoDigitsHere", "Password must contain at least one number"},
		{"GoodPass1", ""},
		{"aA345678", ""},
	}
	for _, c := range cases {
		if got := Password(c.in); got != c.want {
			t.Fatalf("Password(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestConfirmPassword(t *testing.T) {
	if got := ConfirmPassword("Secret1x", ""); got != "Please confirm your password" {
		t.Fatalf("empty confirm: %q", got)
	}
	if got := ConfirmPassword("Secret1x", "Secret1y"); got != "Passwords do not match" {
		t.Fatalf("mismatch: %q", got)
	}
	if got := ConfirmPassword("Secret1x", "Secret1x"); got != "" {
		t.Fatalf("match: %q", got)
	}
}

func TestName(t *testing.T) {
	cases := []struct {
		in, label, want string
	}{
		{"", "First name", "First name is required"},
		{"A", "First name", "First name must be at least 2 characters long"},
		{" A ", "Last name", "Last name must be at least 2 characters long"},
		{strings.Repeat("b", 51), "Name", "Name must be less than 50 characters"},
		{"Anne<3", "Name", "Name contains invalid characters"},
		{"O'Brien-Smith", "Last name", ""},
		{"Mary Jane", "First name", ""},
	}
	for _, c := range cases {
		if got := Name(c.in, c.label); got != c.want {
			t.Fatalf("Name(%q,%q)=%q, want %q", c.in, c.label, got, c.want)
		}
	}
}

func TestPhone(t *testing.T) {
	if got := Phone(""); got != "" {
		t.Fatalf("empty phone must pass, got %q", got)
	}
	if got := Phone("+1 202-555-0147"); got != "" {
		t.Fatalf("valid phone rejected: %q", got)
	}
	if got := Phone("0123"); got != "Please enter a valid phone number" {
		t.Fatalf("invalid phone: %q", got)
	}
	if got := Phone("abc"); got != "Please enter a valid phone number" {
		t.Fatalf("invalid phone: %q", got)
	}
}

func TestRole(t *testing.T) {
	allowed := []string{"donor", "volunteer"}
	if got := Role("", allowed); got != "Role is required" {
		t.Fatalf("empty role: %q", got)
	}
	if got := Role("admin", allowed); got != "Invalid role selected" {
		t.Fatalf("disallowed role: %q", got)
	}
	if got := Role("volunteer", allowed); got != "" {
		t.Fatalf("allowed role: %q", got)
	}
}
