package validation

import (
	"fmt"

	"caricature_studio/core"
)

// ValidationResult is the outcome of one configuration check. Warning marks
// a problem that does not stop the server.
type ValidationResult struct {
	Valid   bool
	Warning bool
	Message string
	Error   error
}

// ConfigValidator checks a loaded core.Config. Checks never print or return
// credential values, only whether they are present.
type ConfigValidator struct {
	envPath string
	cfg     *core.Config
}

func NewConfigValidator(cfg *core.Config) *ConfigValidator {
	return &ConfigValidator{
		envPath: ".env",
		cfg:     cfg,
	}
}

func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile warns when no .env file is present. Variables may come from
// the process environment instead, so this never fails.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(v.envPath); err != nil {
		return ValidationResult{
			Valid:   true,
			Warning: true,
			Message: "No .env file, using process environment",
			Error:   core.ErrEnvFileMissing(v.envPath),
		}
	}
	return ValidationResult{Valid: true, Message: "Environment file found"}
}

// CheckProviderCredentials requires at least one provider key and reports
// which providers are available.
func (v *ConfigValidator) CheckProviderCredentials() ValidationResult {
	switch {
	case v.cfg.HasGemini() && v.cfg.HasOpenAI():
		return ValidationResult{Valid: true, Message: "Gemini and OpenAI configured"}
	case v.cfg.HasGemini():
		return ValidationResult{Valid: true, Warning: true, Message: "Only Gemini configured, OpenAI requests will fail"}
	case v.cfg.HasOpenAI():
		return ValidationResult{Valid: true, Warning: true, Message: "Only OpenAI configured, Gemini requests will fail"}
	default:
		return ValidationResult{
			Valid:   false,
			Message: "No provider credential",
			Error:   core.ErrMissingCredential("OPENAI_API_KEY or GEMINI_API_KEY"),
		}
	}
}

// CheckProviderEndpoints validates the optional base URL overrides.
func (v *ConfigValidator) CheckProviderEndpoints() ValidationResult {
	overrides := []struct {
		name  string
		value string
	}{
		{"OPENAI_BASE_URL", v.cfg.OpenAIBaseURL},
		{"GEMINI_BASE_URL", v.cfg.GeminiBaseURL},
	}
	for _, o := range overrides {
		if err := ValidateBaseURL(o.value); err != nil {
			return ValidationResult{
				Valid:   false,
				Message: "Invalid " + o.name,
				Error:   core.ErrInvalidURL(o.name, o.value, err.Error()),
			}
		}
	}
	return ValidationResult{Valid: true, Message: "Provider endpoints valid"}
}

// CheckPrivacyPolicy confirms how vision refusals will be handled.
func (v *ConfigValidator) CheckPrivacyPolicy() ValidationResult {
	switch v.cfg.PrivacyPolicy {
	case core.PrivacyPolicySubstitute:
		return ValidationResult{Valid: true, Message: "Refused descriptions fall back to a generic graduate"}
	case core.PrivacyPolicyAbort:
		return ValidationResult{Valid: true, Message: "Refused descriptions abort the generation"}
	default:
		return ValidationResult{
			Valid:   false,
			Message: "Unknown privacy policy",
			Error:   core.ErrInvalidValue("PRIVACY_POLICY", v.cfg.PrivacyPolicy, "use 'substitute' or 'abort'"),
		}
	}
}

// CheckDatabasePath confirms the database directory can be written.
func (v *ConfigValidator) CheckDatabasePath() ValidationResult {
	if err := CheckDirWritable(v.cfg.DatabasePath); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Database location unusable",
			Error:   core.ErrStorageUnavailable(v.cfg.DatabasePath, err.Error()),
		}
	}
	return ValidationResult{Valid: true, Message: "Database directory writable"}
}

// CheckDiskSpace warns when the database filesystem is nearly full.
func (v *ConfigValidator) CheckDiskSpace() ValidationResult {
	free, err := FreeSpace(v.cfg.DatabasePath)
	if err != nil {
		return ValidationResult{Valid: true, Warning: true, Message: "Could not read free space", Error: err}
	}
	if free < MinFreeBytes {
		return ValidationResult{
			Valid:   true,
			Warning: true,
			Message: fmt.Sprintf("Only %s free, history saves may fail", FormatBytes(free)),
		}
	}
	return ValidationResult{Valid: true, Message: FormatBytes(free) + " free"}
}
