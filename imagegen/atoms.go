// Package imagegen turns a selfie into a graduation caricature.
//
// atoms.go holds the pure string helpers the providers share.
package imagegen

import (
	"strings"
)

// IsAzureEndpoint reports whether endpoint is an Azure OpenAI resource.
// Azure endpoints match *.openai.azure.com or *.cognitiveservices.azure.com.
//
// Example:
//
//	IsAzureEndpoint("https://myresource.openai.azure.com") // true
//	IsAzureEndpoint("https://api.openai.com/v1")           // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

// refusalPhrases open the replies a vision model gives when it declines to
// look at a face.
var refusalPhrases = []string{
	"i'm sorry",
	"i cannot",
	"i can't",
	"identify",
	"privacy",
	"unable to",
	"policy",
	"assist with this request",
}

// IsRefusal reports whether text starts with a known refusal phrase,
// ignoring case and leading whitespace. Typographic apostrophes count.
func IsRefusal(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.ReplaceAll(lower, "’", "'")
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}
