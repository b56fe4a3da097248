package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/messages"
	"caricature_studio/studio"
)

func TestClassifyError(t *testing.T) {
	genErr := func(kind imagegen.ErrorKind) error {
		return &imagegen.GenerationError{Kind: kind, Provider: imagegen.ProviderA, Op: "synthesize", Message: "provider said no"}
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
	}{
		{"no credits", studio.ErrNoCredits, http.StatusPaymentRequired, messages.KeyNoCredits},
		{"in progress", studio.ErrGenerationInProgress, http.StatusConflict, messages.KeyInProgress},
		{"no session", studio.ErrNoSession, http.StatusConflict, messages.KeyNoSession},
		{"invalid config", fmt.Errorf("%w: course name is required", imagegen.ErrInvalidConfig), http.StatusBadRequest, messages.KeyInvalidConfig},
		{"invalid image", fmt.Errorf("%w: bad png", imagegen.ErrInvalidImage), http.StatusBadRequest, messages.KeyInvalidImage},
		{"empty image", imagegen.ErrEmptyImage, http.StatusBadRequest, messages.KeyInvalidImage},
		{"not found", db.ErrNotFound, http.StatusNotFound, messages.KeyNotFound},
		{"credential", genErr(imagegen.KindInvalidCredential), http.StatusBadGateway, "INVALID_CREDENTIAL"},
		{"missing key", &imagegen.GenerationError{Kind: imagegen.KindInvalidCredential, Err: imagegen.ErrProviderNotConfigured}, http.StatusBadGateway, messages.KeyMissingProviderKey},
		{"quota", genErr(imagegen.KindQuotaExceeded), http.StatusServiceUnavailable, "QUOTA_EXCEEDED"},
		{"busy", &imagegen.GenerationError{Kind: imagegen.KindQuotaExceeded, Busy: true}, http.StatusServiceUnavailable, messages.KeyBusy},
		{"safety", genErr(imagegen.KindSafetyRefusal), http.StatusUnprocessableEntity, "SAFETY_REFUSAL"},
		{"privacy", genErr(imagegen.KindPrivacyRefusal), http.StatusUnprocessableEntity, "PRIVACY_REFUSAL"},
		{"no image", genErr(imagegen.KindNoImageReturned), http.StatusBadGateway, "NO_IMAGE_RETURNED"},
		{"unknown", genErr(imagegen.KindUnknown), http.StatusBadGateway, "UNKNOWN"},
		{"slot wait timeout", fmt.Errorf("studio: wait for a free slot: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, messages.KeyBusy},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, key := ClassifyError(tt.err)
			if status != tt.wantStatus || key != tt.wantKey {
				t.Errorf("ClassifyError() = (%d, %q), want (%d, %q)", status, key, tt.wantStatus, tt.wantKey)
			}
		})
	}
}

func TestClassifyError_KeysExistInCatalog(t *testing.T) {
	catalog := messages.MustLoad(messages.DefaultLocale)
	errs := []error{
		studio.ErrNoCredits,
		studio.ErrNoSession,
		imagegen.ErrInvalidConfig,
		&imagegen.GenerationError{Kind: imagegen.KindQuotaExceeded, Busy: true},
		&imagegen.GenerationError{Kind: imagegen.KindSafetyRefusal},
		errors.New("other"),
	}
	for _, err := range errs {
		_, key := ClassifyError(err)
		if msg := catalog.Message("en", key); msg == key {
			t.Errorf("key %q has no catalog entry", key)
		}
	}
}

func TestResponder_ErrorLocalized(t *testing.T) {
	rs := NewResponder(messages.MustLoad(messages.DefaultLocale), false, nil)

	tests := []struct {
		name           string
		acceptLanguage string
		wantLocale     string
	}{
		{"english", "en-US,en;q=0.9", "en"},
		{"portuguese", "pt-BR", "pt-BR"},
		{"no header", "", "pt-BR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			rec := httptest.NewRecorder()

			rs.Error(rec, req, http.StatusPaymentRequired, messages.KeyNoCredits, errors.New("internal detail"))

			if rec.Code != http.StatusPaymentRequired {
				t.Errorf("status = %d, want 402", rec.Code)
			}
			if got := rec.Header().Get("Content-Language"); got != tt.wantLocale {
				t.Errorf("Content-Language = %q, want %q", got, tt.wantLocale)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			want := messages.MustLoad(messages.DefaultLocale).Message(tt.wantLocale, messages.KeyNoCredits)
			if body.Error.Code != messages.KeyNoCredits || body.Error.Message != want {
				t.Errorf("body = %+v, want code %q message %q", body.Error, messages.KeyNoCredits, want)
			}
			if body.Error.Detail != "" {
				t.Errorf("detail %q leaked outside dev mode", body.Error.Detail)
			}
		})
	}
}

func TestResponder_DevModeDetail(t *testing.T) {
	rs := NewResponder(nil, true, nil)
	rec := httptest.NewRecorder()

	rs.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadGateway, "UNKNOWN", errors.New("upstream 500: boom"))

	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Detail != "upstream 500: boom" {
		t.Errorf("detail = %q, want provider message", body.Error.Detail)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "1"},
		{300 * time.Millisecond, "1"},
		{2 * time.Second, "2"},
		{2500 * time.Millisecond, "3"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		RetryAfter(rec, tt.d)
		if got := rec.Header().Get("Retry-After"); got != tt.want {
			t.Errorf("RetryAfter(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded header ignored", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "10.0.0.1:1234", "10.0.0.1"},
		{"real ip header ignored", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:1234", "10.0.0.1"},
		{"remote addr", nil, "192.0.2.9:5555", "192.0.2.9"},
		{"ipv6", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"no port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
