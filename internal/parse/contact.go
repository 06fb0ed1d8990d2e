package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	phoneRe = regexp.MustCompile(`^\d{10}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Phone accepts exactly ten digits, ignoring surrounding whitespace.
func Phone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !phoneRe.MatchString(s) {
		return "", fmt.Errorf("phone must be a 10-digit number: %q", raw)
	}
	return s, nil
}

// Email checks the basic local@domain.tld shape and normalises case.
func Email(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(s) {
		return "", fmt.Errorf("invalid email address: %q", raw)
	}
	return s, nil
}

// Name trims a contact name; blank names are rejected.
func Name(raw string) (string, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return "", fmt.Errorf("name is required")
	}
	return s, nil
}
