package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing    = "ENV_FILE_MISSING"
	ErrCodeMissingCredential = "MISSING_CREDENTIAL"
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeStorage           = "STORAGE_UNAVAILABLE"
)

// ErrEnvFileMissing returns an error for a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env or export the variables in your shell",
	}
}

// ErrMissingCredential returns an error when no provider API key is configured.
func ErrMissingCredential(names string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingCredential,
		Message: fmt.Sprintf("Missing provider credential: %s", names),
		Action:  "Set OPENAI_API_KEY for the OpenAI provider and/or GEMINI_API_KEY for the Gemini provider",
	}
}

// ErrInvalidURL returns an error for a malformed provider base URL.
func ErrInvalidURL(name, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidURL,
		Message: fmt.Sprintf("Invalid %s '%s': %s", name, value, reason),
		Action:  fmt.Sprintf("Set %s to an http(s) URL or leave it empty for the provider default", name),
	}
}

// ErrInvalidValue returns an error for a value outside its accepted range.
func ErrInvalidValue(name, value, action string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid value for %s: %q", name, value),
		Action:  action,
	}
}

// ErrStorageUnavailable returns an error when the database location cannot be used.
func ErrStorageUnavailable(path, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("Cannot use database path %s: %s", path, reason),
		Action:  "Set DATABASE_PATH to a file in a writable directory",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
