// Package validate holds the field validators and the input sanitizer used
// by the auth forms. Validators are pure: they return an empty string when
// the value passes and the first failing message otherwise, in the order
// required → format/length → character classes. The messages are UI copy
// and are part of the contract.
package validate

import (
	"regexp"
	"strings"
)

var sanitizer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize neutralizes markup-significant characters before a value reaches
// state or the wire. This is a defense against reflected markup, not a full
// HTML sanitizer.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9][0-9\s\-()]{7,15}$`)
)

// Email validates an email address.
func Email(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailRe.MatchString(email) {
		return "Please enter a valid email address"
	}
	if len(email) > 255 {
		return "Email must be less than 255 characters"
	}
	return ""
}

// Password validates password strength. Checks run in declared order and
// the first failure wins.
func Password(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < 8 {
		return "Password must be at least 8 characters long"
	}
	if len(password) > 128 {
		return "Password must be less than 128 characters"
	}
	if !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		return "Password must contain at least one lowercase letter"
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return "Password must contain at least one uppercase letter"
	}
	if !strings.ContainsAny(password, "0123456789") {
		return "Password must contain at least one number"
	}
	return ""
}

// ConfirmPassword validates the confirmation field against the password.
func ConfirmPassword(password, confirm string) string {
	if confirm == "" {
		return "Please confirm your password"
	}
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

// Name validates a person-name field. label names the field in messages
// ("First name", "Last name").
func Name(name, label string) string {
	if label == "" {
		label = "Name"
	}
	if name == "" {
		return label + " is required"
	}
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 {
		return label + " must be at least 2 characters long"
	}
	if len(trimmed) > 50 {
		return label + " must be less than 50 characters"
	}
	if !nameRe.MatchString(trimmed) {
		return label + " contains invalid characters"
	}
	return ""
}

// Phone validates an optional phone number. Empty passes.
func Phone(phone string) string {
	if phone == "" {
		return ""
	}
	if !phoneRe.MatchString(phone) {
		return "Please enter a valid phone number"
	}
	return ""
}

// Role validates role membership against the allowed set.
func Role(role string, allowed []string) string {
	if role == "" {
		return "Role is required"
	}
	for _, a := range allowed {
		if role == a {
			return ""
		}
	}
	return "Invalid role selected"
}
