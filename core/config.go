package core

import (
	"crypto/tls"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"
)

// Privacy policies accepted by PRIVACY_POLICY.
const (
	PrivacyPolicySubstitute = "substitute"
	PrivacyPolicyAbort      = "abort"
)

// Config holds every value resolved from the environment at startup.
// Credentials are read once here and never written anywhere else.
type Config struct {
	// Provider credentials (at least one required)
	OpenAIAPIKey string
	GeminiAPIKey string

	// Provider endpoints (empty means the SDK default)
	OpenAIBaseURL         string
	AzureOpenAIAPIVersion string
	GeminiBaseURL         string

	// Models
	GeminiEditModel     string
	GeminiFallbackModel string
	OpenAIVisionModel   string
	OpenAIImageModel    string
	VisionMaxTokens     int

	// Generation behavior
	PrivacyPolicy         string
	AITimeout             time.Duration
	MaxConcurrent         int
	MaxImageBytes         int
	MaxImageDimension     int
	GenerateRatePerMinute int

	// Accounts and history
	InitialCredits       int
	DatabasePath         string
	HistoryRetentionDays int
	HistoryMaxPerUser    int
	SessionTTL           time.Duration
	RefineSessionTTL     time.Duration

	// Server
	Port                 int
	DefaultLocale        string
	TLSCertFile          string
	TLSKeyFile           string
	SecureCookies        bool
	TrustedProxies       []netip.Prefix
	AllowSelfSignedCerts bool
	DevMode              bool
	LogFile              string
}

// LoadConfig reads the configuration from environment variables. Call
// godotenv.Load first if a .env file should be honored.
//
// Returns a *ConfigError when no provider credential is present or a value
// is malformed.
func LoadConfig() (*Config, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		geminiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if openAIKey == "" && geminiKey == "" {
		return nil, ErrMissingCredential("OPENAI_API_KEY or GEMINI_API_KEY")
	}

	policy := strings.ToLower(GetEnvOrDefault("PRIVACY_POLICY", PrivacyPolicySubstitute))
	if policy != PrivacyPolicySubstitute && policy != PrivacyPolicyAbort {
		return nil, ErrInvalidValue("PRIVACY_POLICY", policy, "use 'substitute' or 'abort'")
	}

	maxConcurrent := ParseIntEnv("MAX_CONCURRENT", 4)
	if maxConcurrent < 1 {
		return nil, ErrInvalidValue("MAX_CONCURRENT", os.Getenv("MAX_CONCURRENT"), "must be at least 1")
	}

	initialCredits := ParseIntEnv("INITIAL_CREDITS", 3)
	if initialCredits < 0 {
		return nil, ErrInvalidValue("INITIAL_CREDITS", os.Getenv("INITIAL_CREDITS"), "must not be negative")
	}

	certFile, keyFile := os.Getenv("TLS_CERT_FILE"), os.Getenv("TLS_KEY_FILE")
	if (certFile == "") != (keyFile == "") {
		return nil, ErrInvalidValue("TLS_CERT_FILE", certFile, "set both TLS_CERT_FILE and TLS_KEY_FILE or neither")
	}

	trustedProxies, err := ParseTrustedProxies(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, ErrInvalidValue("TRUSTED_PROXIES", os.Getenv("TRUSTED_PROXIES"), "use comma-separated IPs or CIDR ranges")
	}

	dbPath := GetEnvOrDefault("DATABASE_PATH", GetDataFilePath("studio.db"))
	if strings.TrimSpace(dbPath) == "" {
		return nil, ErrInvalidValue("DATABASE_PATH", dbPath, "set a writable file path")
	}

	return &Config{
		OpenAIAPIKey: openAIKey,
		GeminiAPIKey: geminiKey,

		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		AzureOpenAIAPIVersion: GetEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		GeminiBaseURL:         os.Getenv("GEMINI_BASE_URL"),

		GeminiEditModel:     GetEnvOrDefault("GEMINI_EDIT_MODEL", "gemini-2.0-flash-exp"),
		GeminiFallbackModel: GetEnvOrDefault("GEMINI_FALLBACK_MODEL", "imagen-3.0-generate-001"),
		OpenAIVisionModel:   GetEnvOrDefault("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAIImageModel:    GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		VisionMaxTokens:     ParseIntEnv("OPENAI_VISION_MAX_TOKENS", 300),

		PrivacyPolicy:         policy,
		AITimeout:             ParseDurationEnv("AI_TIMEOUT", 60),
		MaxConcurrent:         maxConcurrent,
		MaxImageBytes:         ParseIntEnv("MAX_IMAGE_BYTES", 10<<20),
		MaxImageDimension:     ParseIntEnv("MAX_IMAGE_DIMENSION", 1536),
		GenerateRatePerMinute: ParseIntEnv("GENERATE_RATE_PER_MINUTE", 6),

		InitialCredits:       initialCredits,
		DatabasePath:         dbPath,
		HistoryRetentionDays: ParseIntEnv("HISTORY_RETENTION_DAYS", 90),
		HistoryMaxPerUser:    ParseIntEnv("HISTORY_MAX_PER_USER", 50),
		SessionTTL:           ParseDurationStringEnv("SESSION_TTL", DefaultSessionDuration),
		RefineSessionTTL:     ParseDurationStringEnv("REFINE_SESSION_TTL", DefaultRefineSessionTTL),

		Port:                 ParseIntEnv("PORT", 3000),
		DefaultLocale:        GetEnvOrDefault("DEFAULT_LOCALE", "pt-BR"),
		TLSCertFile:          certFile,
		TLSKeyFile:           keyFile,
		SecureCookies:        ParseBoolEnv("SECURE_COOKIES", certFile != ""),
		TrustedProxies:       trustedProxies,
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
		DevMode:              ParseBoolEnv("DEV_MODE", false),
		LogFile:              GetEnvOrDefault("LOG_FILE", "studio.log"),
	}, nil
}

// ParseTrustedProxies parses a comma-separated list of IPs and CIDR ranges.
// A bare IP becomes a single-address prefix.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// HasOpenAI reports whether the describe-then-generate provider is usable.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasGemini reports whether the direct-edit provider is usable.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasTLS reports whether the server should listen with HTTPS.
func (c *Config) HasTLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// GetHTTPClient returns an HTTP client honoring AllowSelfSignedCerts. Both
// provider SDKs are handed this client.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}
	if cfg != nil && cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
