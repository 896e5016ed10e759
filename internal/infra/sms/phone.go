// internal/infra/sms/phone.go
package sms

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	cameroonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^6\d{2}\s?\d{2}\s?\d{2}\s?\d{2}$`), // 6XX XX XX XX or 6XXXXXXXX
		regexp.MustCompile(`^237\d{9}$`),
		regexp.MustCompile(`^\+237\d{9}$`),
	}
	e164Pattern = regexp.MustCompile(`^\+\d{10,15}$`)
)

// IsValidCameroonPhone reports whether phone matches one of the accepted
// Cameroon formats: 6XX XX XX XX, 6XXXXXXXX, 237XXXXXXXXX or +237XXXXXXXXX.
func IsValidCameroonPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}
	for _, p := range cameroonPatterns {
		if p.MatchString(phone) {
			return true
		}
	}
	return false
}

// NormalizeCameroonPhone converts a valid Cameroon number to international
// format (+237XXXXXXXXX).
func NormalizeCameroonPhone(phone string) (string, error) {
	if !IsValidCameroonPhone(phone) {
		return "", fmt.Errorf("invalid Cameroon phone number: %q", phone)
	}
	clean := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	switch {
	case strings.HasPrefix(clean, "6"):
		return "+237" + clean, nil
	case strings.HasPrefix(clean, "237"):
		return "+" + clean, nil
	default:
		return clean, nil
	}
}

// IsCameroonNumber classifies a destination for provider routing: Cameroon
// numbers go to mTarget first, everything else to Twilio first.
func IsCameroonNumber(phone string) bool {
	clean := stripSeparators(phone)
	return strings.HasPrefix(clean, "+237") ||
		strings.HasPrefix(clean, "00237") ||
		strings.HasPrefix(clean, "237") ||
		(strings.HasPrefix(clean, "6") && len(clean) == 9)
}

// NormalizeForMTarget converts a phone number to the 00237XXXXXXXXX wire
// format mTarget expects.
func NormalizeForMTarget(phone string) string {
	clean := stripSeparators(phone)
	clean = strings.TrimPrefix(clean, "+")
	switch {
	case strings.HasPrefix(clean, "00237"):
		return clean
	case strings.HasPrefix(clean, "237"):
		return "00" + clean
	case strings.HasPrefix(clean, "6") && len(clean) == 9:
		return "00237" + clean
	}
	// Keep digits only; the provider rejects anything still invalid.
	return regexp.MustCompile(`\D`).ReplaceAllString(clean, "")
}

// NormalizeForTwilio converts a phone number to E.164 as Twilio requires.
func NormalizeForTwilio(phone string) (string, error) {
	clean := stripSeparators(phone)
	clean = strings.ReplaceAll(clean, "(", "")
	clean = strings.ReplaceAll(clean, ")", "")

	switch {
	case strings.HasPrefix(clean, "00"):
		clean = "+" + clean[2:]
	case strings.HasPrefix(clean, "237") && len(clean) == 12:
		clean = "+" + clean
	case strings.HasPrefix(clean, "6") && len(clean) == 9:
		clean = "+237" + clean
	case strings.HasPrefix(clean, "+"):
		// already international
	default:
		return "", fmt.Errorf("phone number %q is not in a recognized format (E.164 required)", phone)
	}

	if !e164Pattern.MatchString(clean) {
		return "", fmt.Errorf("phone number %q is not valid E.164", phone)
	}
	return clean, nil
}

// MaskPhone hides the tail of a phone number for logs.
func MaskPhone(phone string) string {
	if phone == "" {
		return "***"
	}
	if len(phone) <= 8 {
		return phone[:len(phone)/2] + "***"
	}
	return phone[:8] + "***"
}

func stripSeparators(phone string) string {
	clean := strings.TrimSpace(phone)
	clean = strings.ReplaceAll(clean, " ", "")
	return strings.ReplaceAll(clean, "-", "")
}
