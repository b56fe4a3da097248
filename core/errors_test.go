package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	withAction := &ConfigError{Code: "X", Message: "Test message", Action: "Take this action"}
	if got := withAction.Error(); got != "Test message. Take this action" {
		t.Errorf("Error() = %q", got)
	}

	bare := &ConfigError{Code: "X", Message: "Only message"}
	if got := bare.Error(); got != "Only message" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrMissingCredential_NamesBothProviders(t *testing.T) {
	err := ErrMissingCredential("OPENAI_API_KEY or GEMINI_API_KEY")
	if err.Code != ErrCodeMissingCredential {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeMissingCredential)
	}
	for _, want := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error() = %q, want it to mention %s", err.Error(), want)
		}
	}
}

func TestErrInvalidURL(t *testing.T) {
	err := ErrInvalidURL("GEMINI_BASE_URL", "ftp://x", "unsupported scheme")
	if err.Code != ErrCodeInvalidURL {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeInvalidURL)
	}
	if !strings.Contains(err.Action, "GEMINI_BASE_URL") {
		t.Errorf("Action = %q, want it to name the variable", err.Action)
	}
}

func TestIsConfigError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("startup: %w", ErrStorageUnavailable("/nope/db", "read-only"))

	cfgErr, ok := IsConfigError(wrapped)
	if !ok {
		t.Fatal("IsConfigError() = false for wrapped ConfigError")
	}
	if cfgErr.Code != ErrCodeStorage {
		t.Errorf("Code = %s, want %s", cfgErr.Code, ErrCodeStorage)
	}

	if _, ok := IsConfigError(errors.New("plain")); ok {
		t.Error("IsConfigError() = true for plain error")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Error("GetErrorCode() should be empty for plain error")
	}
}
