package validation

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"caricature_studio/core"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		OpenAIAPIKey:  "sk-test-secret",
		GeminiAPIKey:  "AIza-test-secret",
		PrivacyPolicy: core.PrivacyPolicySubstitute,
		DatabasePath:  filepath.Join(t.TempDir(), "data", "studio.db"),
	}
}

func TestValidationSuite_AllPass(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)

	result := NewValidationSuite(cfg).
		WithOutput(&out).
		WithEnvPath(filepath.Join(t.TempDir(), "missing.env")).
		Validate()

	if !result.Success {
		t.Fatalf("Success = false: %s (%v)", result.Summary(), result.GetFirstError())
	}
	if result.TotalSteps != 6 {
		t.Errorf("TotalSteps = %d, want 6", result.TotalSteps)
	}
	// Missing .env is only a warning.
	if result.Warnings < 1 {
		t.Errorf("Warnings = %d, want at least 1", result.Warnings)
	}
	if strings.Contains(out.String(), "sk-test-secret") || strings.Contains(out.String(), "AIza-test-secret") {
		t.Error("validation output leaked a credential")
	}
}

func TestValidationSuite_NoCredentialFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""
	cfg.GeminiAPIKey = ""

	result := NewValidationSuite(cfg).WithShowProgress(false).Validate()

	if result.Success {
		t.Fatal("Success = true without credentials")
	}
	if code := core.GetErrorCode(result.GetFirstError()); code != core.ErrCodeMissingCredential {
		t.Errorf("first error code = %q, want %q", code, core.ErrCodeMissingCredential)
	}
}

func TestValidationSuite_FailFastSkipsRest(t *testing.T) {
	cfg := testConfig(t)
	cfg.GeminiBaseURL = "ftp://example.com"

	result := NewValidationSuite(cfg).WithShowProgress(false).WithFailFast(true).Validate()

	if result.Success {
		t.Fatal("Success = true with invalid endpoint")
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Status != StepSkipped {
		t.Errorf("last step status = %s, want skipped", last.Status)
	}
}

func TestConfigValidator_SingleProviderWarns(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""

	res := NewConfigValidator(cfg).CheckProviderCredentials()
	if !res.Valid || !res.Warning {
		t.Errorf("result = %+v, want valid with warning", res)
	}
}

func TestConfigValidator_UnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.PrivacyPolicy = "shrug"

	res := NewConfigValidator(cfg).CheckPrivacyPolicy()
	if res.Valid || core.GetErrorCode(res.Error) != core.ErrCodeInvalidValue {
		t.Errorf("result = %+v, want invalid value", res)
	}
}
