package core

import (
	"testing"
	"time"
)

// clearProviderEnv empties every variable LoadConfig reads credentials from,
// so the host environment cannot leak into a test.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "PRIVACY_POLICY", "MAX_CONCURRENT", "INITIAL_CREDITS", "DATABASE_PATH", "SESSION_TTL", "REFINE_SESSION_TTL", "AI_TIMEOUT", "TLS_CERT_FILE", "TLS_KEY_FILE", "SECURE_COOKIES", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_RequiresACredential(t *testing.T) {
	clearProviderEnv(t)

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want missing credential")
	}
	if code := GetErrorCode(err); code != ErrCodeMissingCredential {
		t.Errorf("GetErrorCode() = %q, want %q", code, ErrCodeMissingCredential)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.HasOpenAI() || cfg.HasGemini() {
		t.Errorf("HasOpenAI/HasGemini = %v/%v, want true/false", cfg.HasOpenAI(), cfg.HasGemini())
	}
	if cfg.PrivacyPolicy != PrivacyPolicySubstitute {
		t.Errorf("PrivacyPolicy = %q, want %q", cfg.PrivacyPolicy, PrivacyPolicySubstitute)
	}
	if cfg.InitialCredits != 3 {
		t.Errorf("InitialCredits = %d, want 3", cfg.InitialCredits)
	}
	if cfg.AITimeout != 60*time.Second {
		t.Errorf("AITimeout = %v, want 60s", cfg.AITimeout)
	}
	if cfg.SessionTTL != DefaultSessionDuration {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, DefaultSessionDuration)
	}
	if cfg.RefineSessionTTL != DefaultRefineSessionTTL {
		t.Errorf("RefineSessionTTL = %v, want %v", cfg.RefineSessionTTL, DefaultRefineSessionTTL)
	}
	if cfg.GeminiEditModel == "" || cfg.GeminiFallbackModel == "" || cfg.OpenAIImageModel != "dall-e-3" {
		t.Errorf("unexpected model defaults: %+v", cfg)
	}
}

func TestLoadConfig_GoogleKeyAlias(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GOOGLE_API_KEY", "AIza-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.GeminiAPIKey != "AIza-test" {
		t.Error("GOOGLE_API_KEY was not used as the Gemini credential")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown privacy policy", "PRIVACY_POLICY", "ignore"},
		{"zero concurrency", "MAX_CONCURRENT", "0"},
		{"negative credits", "INITIAL_CREDITS", "-1"},
		{"cert without key", "TLS_CERT_FILE", "server.crt"},
		{"bad trusted proxy", "TRUSTED_PROXIES", "10.0.0.0/8, proxy.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			t.Setenv("GEMINI_API_KEY", "AIza-test")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			if code := GetErrorCode(err); code != ErrCodeInvalidValue {
				t.Errorf("GetErrorCode() = %q, want %q (err = %v)", code, ErrCodeInvalidValue, err)
			}
		})
	}
}

func TestLoadConfig_AbortPolicyCaseInsensitive(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PRIVACY_POLICY", "ABORT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.PrivacyPolicy != PrivacyPolicyAbort {
		t.Errorf("PrivacyPolicy = %q, want %q", cfg.PrivacyPolicy, PrivacyPolicyAbort)
	}
}

func TestLoadConfig_RefineSessionTTLIsSeparate(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("REFINE_SESSION_TTL", "10m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Errorf("SessionTTL = %v, want 48h", cfg.SessionTTL)
	}
	if cfg.RefineSessionTTL != 10*time.Minute {
		t.Errorf("RefineSessionTTL = %v, want 10m", cfg.RefineSessionTTL)
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies(" 10.0.0.0/8, 192.0.2.10 ,, ::1 ")
	if err != nil {
		t.Fatalf("ParseTrustedProxies() error = %v", err)
	}
	want := []string{"10.0.0.0/8", "192.0.2.10/32", "::1/128"}
	if len(prefixes) != len(want) {
		t.Fatalf("prefixes = %v, want %v", prefixes, want)
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Errorf("prefixes[%d] = %s, want %s", i, p, want[i])
		}
	}

	if prefixes, err := ParseTrustedProxies(""); err != nil || len(prefixes) != 0 {
		t.Errorf("ParseTrustedProxies(\"\") = %v, %v; want none", prefixes, err)
	}
	if _, err := ParseTrustedProxies("10.0.0.0/33"); err == nil {
		t.Error("ParseTrustedProxies accepted an invalid prefix length")
	}
}

func TestLoadConfig_TLSImpliesSecureCookies(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.HasTLS() || cfg.SecureCookies {
		t.Errorf("HasTLS/SecureCookies = %v/%v without certificates, want false/false", cfg.HasTLS(), cfg.SecureCookies)
	}

	t.Setenv("TLS_CERT_FILE", "server.crt")
	t.Setenv("TLS_KEY_FILE", "server.key")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.HasTLS() || !cfg.SecureCookies {
		t.Errorf("HasTLS/SecureCookies = %v/%v with certificates, want true/true", cfg.HasTLS(), cfg.SecureCookies)
	}

	t.Setenv("SECURE_COOKIES", "false")
	cfg, _ = LoadConfig()
	if cfg.SecureCookies {
		t.Error("SECURE_COOKIES=false did not override the TLS default")
	}
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(&Config{}, 5*time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}
	if client.Transport != nil {
		t.Error("expected default transport when self-signed certs are not allowed")
	}

	insecure := GetHTTPClient(&Config{AllowSelfSignedCerts: true}, time.Second)
	if insecure.Transport == nil {
		t.Error("expected custom transport when self-signed certs are allowed")
	}
}
