package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces anything that looks like a credential.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns are compiled once and applied to every string value.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),             // OpenAI keys, sk- and sk-proj-
	regexp.MustCompile(`(AIza[a-zA-Z0-9_-]{35})`),             // Google / Gemini keys
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),  // Authorization headers
	regexp.MustCompile(`(?i)(x-goog-api-key\s*[:=]\s*\S+)`),   // Gemini header dumps
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{4,})`), // password= or password:
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(session_id\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldNames mark a field as secret by name alone.
var sensitiveFieldNames = []string{
	"OPENAI_API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"COOKIE",
	"SESSION_ID",
}

// RedactSensitiveData replaces every credential-shaped substring.
//
// Example:
//
//	RedactSensitiveData("key sk-abc123def456ghi789jkl0")
//	// "key [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether a field name marks secret data.
func IsSensitiveField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value matches any credential pattern.
func ContainsSensitiveData(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
