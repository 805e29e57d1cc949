package logger

import (
	"strings"
)

// SanitizedIdentifier masks a login identifier for logging. Emails keep the
// first character of the local part and the TLD ("a***@*******.com");
// usernames keep the first and last character.
func SanitizedIdentifier(identifier string) string {
	if at := strings.Index(identifier, "@"); at > 0 {
		return sanitizedEmail(identifier)
	}
	if len(identifier) <= 2 {
		return strings.Repeat("*", len(identifier))
	}
	return string(identifier[0]) + strings.Repeat("*", len(identifier)-2) + string(identifier[len(identifier)-1])
}

func sanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizeQueryString reports whether a query string contains sensitive
// parameters and should be redacted wholesale from request logs.
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password", "token", "secret", "otp", "code", "email", "identifier", "auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
