package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^[0-9]{6,16}$`)

// ValidateRecipient ensures a send target is present and plausible: either a
// full routing address (contains '@') or a phone-looking string.
func ValidateRecipient(to string) error {
	trimmed := strings.TrimSpace(to)
	if trimmed == "" {
		return errors.New("recipient cannot be empty")
	}
	if strings.ContainsRune(trimmed, '@') {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)
	if !phonePattern.MatchString(digits) {
		return errors.New("recipient must contain 6-16 digits")
	}
	return nil
}

// ValidateURL ensures a non-empty valid URL when provided.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return errors.New("url must be valid")
	}
	return nil
}
