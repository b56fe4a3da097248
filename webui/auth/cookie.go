package auth

import (
	"errors"
	"net/http"
	"time"
)

// Cookie configuration defaults
const (
	DefaultCookiePath = "/"

	// SessionCookieName is the default name for session cookies
	SessionCookieName = "studio_session"
)

// ErrNoCookie is returned when the requested cookie is not present in the request.
var ErrNoCookie = errors.New("cookie not found")

// ErrEmptyCookieName is returned when attempting to create a cookie with an empty name.
var ErrEmptyCookieName = errors.New("cookie name cannot be empty")

// ErrEmptySessionID is returned when attempting to create a session cookie with an empty ID.
var ErrEmptySessionID = errors.New("session ID cannot be empty")

// CookieConfig holds configuration for session cookies.
type CookieConfig struct {
	Name string

	// MaxAge is the cookie lifetime in seconds. 0 makes a browser-session
	// cookie, negative deletes it.
	MaxAge int

	// Secure should be true whenever the studio is served over HTTPS.
	Secure bool

	HTTPOnly bool
	SameSite http.SameSite
	Path     string
}

// DefaultCookieConfig returns HTTP-only, SameSite=Lax cookies valid for the
// whole site for core.DefaultSessionDuration.
//
// Secure is false; set it for HTTPS deployments.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     SessionCookieName,
		MaxAge:   DurationToSeconds(24 * time.Hour),
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     DefaultCookiePath,
	}
}

// NewSessionCookie creates the cookie carrying sessionID.
func NewSessionCookie(sessionID string, cfg CookieConfig) (*http.Cookie, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if cfg.Name == "" {
		return nil, ErrEmptyCookieName
	}

	return &http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     cfg.Path,
		MaxAge:   cfg.MaxAge,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}, nil
}

// ParseSessionCookie extracts the session ID from a request cookie.
func ParseSessionCookie(r *http.Request, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyCookieName
	}

	cookie, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNoCookie
		}
		return "", err
	}
	if cookie.Value == "" {
		return "", ErrNoCookie
	}
	return cookie.Value, nil
}

// ClearSessionCookie returns a cookie that makes the browser drop the
// session cookie described by cfg.
func ClearSessionCookie(cfg CookieConfig) (*http.Cookie, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyCookieName
	}

	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		MaxAge:   -1, // Delete immediately
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}, nil
}

// DurationToSeconds converts a time.Duration to MaxAge seconds.
func DurationToSeconds(d time.Duration) int {
	return int(d.Seconds())
}
