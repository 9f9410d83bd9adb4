package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactIP masks the last octet/group of an IP address for safe
// logging: "203.0.113.42" -> "203.0.113.***".
func RedactIP(ip string) string {
	if i := strings.LastIndexAny(ip, ".:"); i >= 0 {
		return ip[:i+1] + "***"
	}
	return "***"
}

// Truncate shortens free-text fields (survey responses, question
// text, user agents) to a safe preview length for logging.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
