package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"caricature_studio/core"
	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/logging"
	"caricature_studio/messages"
	"caricature_studio/studio"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a localized message. Detail holds the
// underlying error text and is only filled in development mode.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Responder writes JSON responses and localized errors.
type Responder struct {
	catalog *messages.Catalog
	devMode bool
	logger  *logging.Logger
}

// NewResponder creates a Responder. A nil catalog loads the embedded one.
func NewResponder(catalog *messages.Catalog, devMode bool, logger *logging.Logger) *Responder {
	if catalog == nil {
		catalog = messages.MustLoad(messages.DefaultLocale)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Responder{catalog: catalog, devMode: devMode, logger: logger}
}

// JSON writes v with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Debug("failed to write response", zap.Error(err))
	}
}

// Error writes an error response whose message is looked up under key in the
// locale negotiated from Accept-Language.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, status int, key string, cause error) {
	locale := rs.catalog.Match(r.Header.Get("Accept-Language"))
	body := ErrorBody{Error: ErrorDetail{
		Code:    key,
		Message: rs.catalog.Message(locale, key),
	}}
	if rs.devMode && cause != nil {
		body.Error.Detail = cause.Error()
	}
	w.Header().Set("Content-Language", locale)
	rs.JSON(w, status, body)
}

// RetryAfter sets the Retry-After header in whole seconds, at least 1.
func RetryAfter(w http.ResponseWriter, d time.Duration) {
	seconds := int(d.Seconds())
	if d > time.Duration(seconds)*time.Second {
		seconds++
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
}

// ClassifyError maps a studio or repository error to an HTTP status and a
// message catalog key.
func ClassifyError(err error) (int, string) {
	var genErr *imagegen.GenerationError
	switch {
	case errors.Is(err, studio.ErrNoCredits):
		return http.StatusPaymentRequired, messages.KeyNoCredits
	case errors.Is(err, studio.ErrGenerationInProgress):
		return http.StatusConflict, messages.KeyInProgress
	case errors.Is(err, studio.ErrNoSession):
		return http.StatusConflict, messages.KeyNoSession
	case errors.Is(err, imagegen.ErrInvalidConfig):
		return http.StatusBadRequest, messages.KeyInvalidConfig
	case errors.Is(err, imagegen.ErrInvalidImage), errors.Is(err, imagegen.ErrEmptyImage):
		return http.StatusBadRequest, messages.KeyInvalidImage
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, messages.KeyNotFound
	case errors.As(err, &genErr):
		return classifyGeneration(genErr)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, messages.KeyBusy
	default:
		return http.StatusInternalServerError, string(imagegen.KindUnknown)
	}
}

func classifyGeneration(err *imagegen.GenerationError) (int, string) {
	switch err.Kind {
	case imagegen.KindInvalidCredential:
		if errors.Is(err, imagegen.ErrProviderNotConfigured) {
			return http.StatusBadGateway, messages.KeyMissingProviderKey
		}
		return http.StatusBadGateway, string(err.Kind)
	case imagegen.KindQuotaExceeded:
		if imagegen.IsBusy(err) {
			return http.StatusServiceUnavailable, messages.KeyBusy
		}
		return http.StatusServiceUnavailable, string(err.Kind)
	case imagegen.KindSafetyRefusal, imagegen.KindPrivacyRefusal:
		return http.StatusUnprocessableEntity, string(err.Kind)
	case imagegen.KindNoImageReturned:
		return http.StatusBadGateway, string(err.Kind)
	default:
		return http.StatusBadGateway, string(imagegen.KindUnknown)
	}
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are only
// honored through RealIP, which rewrites RemoteAddr for trusted proxies.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type sessionKey struct{}

// WithSession attaches the authenticated session to ctx.
func WithSession(ctx context.Context, session core.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by the auth middleware.
func SessionFromContext(ctx context.Context) (core.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(core.Session)
	return session, ok
}
