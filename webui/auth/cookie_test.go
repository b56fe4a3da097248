package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSessionCookie(t *testing.T) {
	cfg := DefaultCookieConfig()
	cfg.Secure = true
	cfg.MaxAge = DurationToSeconds(2 * time.Hour)

	cookie, err := NewSessionCookie("abc", cfg)
	if err != nil {
		t.Fatalf("NewSessionCookie() error = %v", err)
	}
	if cookie.Name != SessionCookieName || cookie.Value != "abc" {
		t.Errorf("cookie = %s=%s", cookie.Name, cookie.Value)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = httpOnly %v secure %v sameSite %v", cookie.HttpOnly, cookie.Secure, cookie.SameSite)
	}
	if cookie.MaxAge != 7200 || cookie.Path != "/" {
		t.Errorf("cookie MaxAge = %d Path = %q", cookie.MaxAge, cookie.Path)
	}
}

func TestNewSessionCookie_Errors(t *testing.T) {
	if _, err := NewSessionCookie("", DefaultCookieConfig()); !errors.Is(err, ErrEmptySessionID) {
		t.Errorf("empty id error = %v, want ErrEmptySessionID", err)
	}
	if _, err := NewSessionCookie("abc", CookieConfig{}); !errors.Is(err, ErrEmptyCookieName) {
		t.Errorf("empty name error = %v, want ErrEmptyCookieName", err)
	}
}

func TestParseSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := ParseSessionCookie(req, SessionCookieName); !errors.Is(err, ErrNoCookie) {
		t.Errorf("missing cookie error = %v, want ErrNoCookie", err)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "xyz"})
	id, err := ParseSessionCookie(req, SessionCookieName)
	if err != nil || id != "xyz" {
		t.Errorf("ParseSessionCookie() = (%q, %v), want xyz", id, err)
	}

	if _, err := ParseSessionCookie(req, ""); !errors.Is(err, ErrEmptyCookieName) {
		t.Errorf("empty name error = %v, want ErrEmptyCookieName", err)
	}
}

func TestClearSessionCookie(t *testing.T) {
	cfg := DefaultCookieConfig()
	cfg.Secure = true

	cookie, err := ClearSessionCookie(cfg)
	if err != nil {
		t.Fatalf("ClearSessionCookie() error = %v", err)
	}
	if cookie.MaxAge != -1 || cookie.Value != "" || !cookie.Secure {
		t.Errorf("clear cookie = %+v", cookie)
	}
}
