package manager

import "strings"

// IsValidHostName reports whether name is a DNS name certbot's webroot
// plugin can issue for:
// - at least two labels, total length at most 253
// - labels of 1..63 letters, digits or hyphens, not starting or ending with a hyphen
// - no wildcards (HTTP-01 challenges cannot prove them)
func IsValidHostName(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if !isAlphaNumeric(rune(label[0])) || !isAlphaNumeric(rune(label[len(label)-1])) {
			return false
		}
		for _, char := range label {
			if !isAlphaNumeric(char) && char != '-' {
				return false
			}
		}
	}

	return true
}

// isAlphaNumeric checks if a rune is an ASCII letter or digit
func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
