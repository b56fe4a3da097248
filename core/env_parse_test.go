package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	const key = "TEST_GET_ENV_OR_DEFAULT"

	t.Setenv(key, "")
	if got := GetEnvOrDefault(key, "default"); got != "default" {
		t.Errorf("empty: got %q, want %q", got, "default")
	}

	t.Setenv(key, "custom")
	if got := GetEnvOrDefault(key, "default"); got != "custom" {
		t.Errorf("set: got %q, want %q", got, "custom")
	}
}

func TestParseIntEnv(t *testing.T) {
	const key = "TEST_PARSE_INT_ENV"
	tests := []struct {
		value string
		want  int
	}{
		{"", 7},
		{"42", 42},
		{" 12 ", 12},
		{"abc", 7},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseIntEnv(key, 7); got != tt.want {
				t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	const key = "TEST_PARSE_BOOL_ENV"
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"off", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseBoolEnv(key, tt.defaultValue); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	const key = "TEST_PARSE_DURATION_ENV"
	t.Setenv(key, "30")
	if got := ParseDurationEnv(key, 60); got != 30*time.Second {
		t.Errorf("ParseDurationEnv() = %v, want 30s", got)
	}
}

func TestParseDurationStringEnv(t *testing.T) {
	const key = "TEST_PARSE_DURATION_STRING_ENV"
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Hour},
		{"90m", 90 * time.Minute},
		{"120", 2 * time.Minute},
		{"-5m", time.Hour},
		{"soon", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseDurationStringEnv(key, time.Hour); got != tt.want {
				t.Errorf("ParseDurationStringEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
