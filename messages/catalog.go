// Package messages holds the user-facing text shown for every failure, in
// Brazilian Portuguese and English.
package messages

import (
	_ "embed"
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Keys that are not an imagegen.ErrorKind.
const (
	KeyBusy               = "busy"
	KeyMissingProviderKey = "missing_provider_key"
	KeyNoCredits          = "no_credits"
	KeyInProgress         = "in_progress"
	KeyInvalidConfig      = "invalid_config"
	KeyInvalidImage       = "invalid_image"
	KeyNoSession          = "no_session"
	KeyRateLimited        = "rate_limited"
	KeyUnauthorized       = "unauthorized"
	KeyInvalidLogin       = "invalid_login"
	KeyLoginBlocked       = "login_blocked"
	KeyEmailTaken         = "email_taken"
	KeyInvalidRequest     = "invalid_request"
	KeyNotFound           = "not_found"
)

// DefaultLocale is used when nothing better matches.
const DefaultLocale = "pt-BR"

//go:embed catalog.yaml
var embedded []byte

// Catalog maps locale -> key -> message.
type Catalog struct {
	defaultLocale string
	entries       map[string]map[string]string
	tags          []language.Tag
	matcher       language.Matcher
}

// Load parses the embedded catalog. defaultLocale must be one of its locales;
// empty selects DefaultLocale.
func Load(defaultLocale string) (*Catalog, error) {
	return Parse(embedded, defaultLocale)
}

// Parse builds a Catalog from YAML data.
func Parse(data []byte, defaultLocale string) (*Catalog, error) {
	var entries map[string]map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("messages: parse catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("messages: catalog is empty")
	}
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	if _, ok := entries[defaultLocale]; !ok {
		return nil, fmt.Errorf("messages: default locale %q not in catalog", defaultLocale)
	}

	// The default locale goes first so the matcher falls back to it.
	locales := make([]string, 0, len(entries))
	for locale := range entries {
		if locale != defaultLocale {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	locales = append([]string{defaultLocale}, locales...)

	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("messages: bad locale %q: %w", locale, err)
		}
		tags = append(tags, tag)
	}

	return &Catalog{
		defaultLocale: defaultLocale,
		entries:       entries,
		tags:          tags,
		matcher:       language.NewMatcher(tags),
	}, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad(defaultLocale string) *Catalog {
	c, err := Load(defaultLocale)
	if err != nil {
		panic(err)
	}
	return c
}

// Message returns the text for key in locale, falling back to the default
// locale and then to the key itself.
func (c *Catalog) Message(locale, key string) string {
	if msg, ok := c.entries[locale][key]; ok {
		return msg
	}
	if msg, ok := c.entries[c.defaultLocale][key]; ok {
		return msg
	}
	return key
}

// Match picks the catalog locale that best serves an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return c.defaultLocale
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return c.defaultLocale
	}
	_, index, confidence := c.matcher.Match(prefs...)
	if confidence == language.No {
		return c.defaultLocale
	}
	return c.tags[index].String()
}

// DefaultLocale returns the locale used when nothing matches.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// Locales lists the catalog locales, default first.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.tags))
	for i, tag := range c.tags {
		out[i] = tag.String()
	}
	return out
}
