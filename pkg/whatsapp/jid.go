package whatsapp

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

const (
	// DefaultCountryCode replaces a leading local-trunk zero in phone input.
	DefaultCountryCode = "62"

	userSuffix  = "@" + types.DefaultUserServer
	groupSuffix = "@" + types.GroupServer
)

// FormatAddress normalizes a send target into its canonical routing address.
// Inputs already carrying a routing suffix (group or direct) pass through
// unchanged; anything else is treated as a phone number: non-digits are
// stripped, a leading 0 is mapped to the country code, and the country code
// is prepended when missing.
func FormatAddress(to string) string {
	to = strings.TrimSpace(to)
	if strings.Contains(to, groupSuffix) || strings.Contains(to, userSuffix) {
		return to
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, to)

	if strings.HasPrefix(digits, "0") {
		digits = DefaultCountryCode + digits[1:]
	}
	if !strings.HasPrefix(digits, DefaultCountryCode) {
		digits = DefaultCountryCode + digits
	}

	return digits + userSuffix
}

// ParseAddress converts a normalized routing address into a transport JID.
func ParseAddress(address string) (types.JID, error) {
	return types.ParseJID(FormatAddress(address))
}

// IsGroupAddress reports whether a routing address belongs to the group
// namespace.
func IsGroupAddress(address string) bool {
	return strings.HasSuffix(address, groupSuffix)
}

// StripAddressSuffix returns the bare user/group part of a routing address.
func StripAddressSuffix(address string) string {
	if idx := strings.IndexRune(address, '@'); idx >= 0 {
		return address[:idx]
	}
	return address
}
