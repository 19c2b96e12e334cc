package auth

import "strings"

// NormalizePhone keeps digits only and drops a leading 86 country code
// from numbers longer than 11 digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 11 && strings.HasPrefix(digits, "86") {
		digits = digits[2:]
	}
	return digits
}
