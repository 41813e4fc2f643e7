package deals

import "strings"

// NormalizePhone rewrites a phone number into E.164. Ten bare digits are assumed to
// be a North American number.
func NormalizePhone(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	digits := digitsOnly(raw)
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(raw, "+") && len(digits) == len(raw)-1:
		// already E.164
		return raw
	case len(digits) == 10:
		return "+1" + digits
	default:
		// 11 digits with a leading country code 1, or an international number
		return "+" + digits
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
