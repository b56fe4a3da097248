package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a generation failed.
type ErrorKind string

const (
	KindInvalidCredential ErrorKind = "INVALID_CREDENTIAL"
	KindQuotaExceeded     ErrorKind = "QUOTA_EXCEEDED"
	KindSafetyRefusal     ErrorKind = "SAFETY_REFUSAL"
	KindPrivacyRefusal    ErrorKind = "PRIVACY_REFUSAL"
	KindNoImageReturned   ErrorKind = "NO_IMAGE_RETURNED"
	KindUnknown           ErrorKind = "UNKNOWN"
)

// Steps named in GenerationError.Op.
const (
	opDescribe   = "describe"
	opSynthesize = "synthesize"
	opFallback   = "fallback"
)

// Sentinel errors for caller contract violations. These are detected before
// any provider call is made.
var (
	ErrInvalidConfig = errors.New("imagegen: invalid generation config")
	ErrInvalidImage  = errors.New("imagegen: source is not a valid image")
	ErrEmptyImage    = errors.New("imagegen: source image is empty")

	// ErrProviderNotConfigured is wrapped by the KindInvalidCredential error
	// returned when the requested provider has no API key.
	ErrProviderNotConfigured = errors.New("imagegen: provider not configured")
)

// GenerationError is the classified failure of a provider call or of a whole
// orchestrated generation.
type GenerationError struct {
	Kind     ErrorKind
	Provider ProviderKind

	// Op names the step that failed: describe, synthesize, fallback.
	Op string

	// Message is the provider's message, kept verbatim for diagnostics.
	Message string

	// StatusCode is the HTTP status returned by the provider, 0 if none.
	StatusCode int

	// Busy is set when the quota fallback was attempted and also failed.
	Busy bool

	Err error
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("imagegen: %s (%s): %s: %s", e.Op, e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("imagegen: %s: %s: %s", e.Op, e.Kind, msg)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification carried by err, or KindUnknown when err
// is not a GenerationError.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a GenerationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == kind
}

// IsBusy reports whether err is a quota failure whose fallback also failed.
func IsBusy(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Busy
}

// Provider code values that map to a specific kind regardless of the HTTP
// status. Gemini reports gRPC-style statuses, OpenAI reports snake_case codes.
var codeKinds = map[string]ErrorKind{
	"RESOURCE_EXHAUSTED":       KindQuotaExceeded,
	"PERMISSION_DENIED":        KindInvalidCredential,
	"UNAUTHENTICATED":          KindInvalidCredential,
	"API_KEY_INVALID":          KindInvalidCredential,
	"rate_limit_exceeded":      KindQuotaExceeded,
	"insufficient_quota":       KindQuotaExceeded,
	"invalid_api_key":          KindInvalidCredential,
	"content_policy_violation": KindSafetyRefusal,
}

// classifyStatus maps an HTTP status and a provider code to a kind. Codes are
// checked first because some providers report credential problems as 400.
func classifyStatus(status int, codes ...string) ErrorKind {
	for _, code := range codes {
		if kind, ok := codeKinds[code]; ok {
			return kind
		}
	}
	switch status {
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidCredential
	default:
		return KindUnknown
	}
}

// classifyTransport classifies errors that never reached an HTTP response.
func classifyTransport(provider ProviderKind, op string, err error) *GenerationError {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "provider did not respond in time"
	}
	return &GenerationError{
		Kind:     KindUnknown,
		Provider: provider,
		Op:       op,
		Message:  msg,
		Err:      err,
	}
}

func noImage(provider ProviderKind, op, msg string) *GenerationError {
	return &GenerationError{
		Kind:     KindNoImageReturned,
		Provider: provider,
		Op:       op,
		Message:  msg,
	}
}
