package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"caricature_studio/core"
	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/logging"
	"caricature_studio/messages"
	"caricature_studio/metrics"
	"caricature_studio/studio"
)

// Studio runs generations. studio.Service implements it.
type Studio interface {
	Generate(ctx context.Context, userID, imageDataURI string, cfg imagegen.GenerationConfig) (studio.Outcome, error)
	Refine(ctx context.Context, userID, instruction string) (studio.Outcome, error)
	InProgress(userID string) bool
	HasSession(userID string) bool
}

// Accounts reads user data. db.Repository implements it.
type Accounts interface {
	GetUser(ctx context.Context, id string) (db.User, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]db.HistoryItem, error)
	DeleteHistoryItem(ctx context.Context, userID, id string) error
}

// HealthChecker reports whether the store is reachable. db.Database
// implements it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StatusSource reports generation health. metrics.Store implements it.
type StatusSource interface {
	GetSystemStatus() metrics.SystemStatus
}

// API holds the JSON handlers behind /api and /health.
type API struct {
	studio   Studio
	accounts Accounts
	health   HealthChecker
	status   StatusSource
	limiter  *GenerateLimiter
	respond  *Responder
	logger   *logging.Logger

	historyLimit int
}

type meResponse struct {
	Email      string `json:"email"`
	Credits    int    `json:"credits"`
	InProgress bool   `json:"in_progress"`
	CanRefine  bool   `json:"can_refine"`
}

type generateRequest struct {
	Image  string                    `json:"image"`
	Config imagegen.GenerationConfig `json:"config"`
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

type generateResponse struct {
	Image                  string `json:"image"`
	Provider               string `json:"provider"`
	Model                  string `json:"model"`
	UsedFallback           bool   `json:"used_fallback"`
	SubstitutedDescription bool   `json:"substituted_description"`
	Credits                int    `json:"credits"`
}

type historyResponse struct {
	ID        string          `json:"id"`
	Image     string          `json:"image"`
	Config    json.RawMessage `json:"config"`
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	CreatedAt time.Time       `json:"created_at"`
}

type healthResponse struct {
	metrics.SystemStatus
	Database string `json:"database"`
}

// handleHealth reports liveness. A failed database ping turns it into 503.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	var body healthResponse
	if a.status != nil {
		body.SystemStatus = a.status.GetSystemStatus()
	} else {
		body.Status = metrics.StatusHealthy
	}
	body.Database = "ok"

	status := http.StatusOK
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			a.logger.Warn("health check: database unreachable", zap.Error(err))
			body.Database = "unreachable"
			body.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	a.respond.JSON(w, status, body)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	user, err := a.accounts.GetUser(r.Context(), session.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond.JSON(w, http.StatusOK, meResponse{
		Email:      user.Email,
		Credits:    user.Credits,
		InProgress: a.studio.InProgress(user.ID),
		CanRefine:  a.studio.HasSession(user.ID),
	})
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if !a.allow(w, r, session.UserID) {
		return
	}

	outcome, err := a.studio.Generate(r.Context(), session.UserID, req.Image, req.Config)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond.JSON(w, http.StatusOK, newGenerateResponse(outcome))
}

func (a *API) handleRefine(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	var req refineRequest
	if !a.decode(w, r, &req) {
		return
	}
	if !a.allow(w, r, session.UserID) {
		return
	}

	outcome, err := a.studio.Refine(r.Context(), session.UserID, req.Instruction)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond.JSON(w, http.StatusOK, newGenerateResponse(outcome))
}

func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	limit := a.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.respond.Error(w, r, http.StatusBadRequest, messages.KeyInvalidRequest, err)
			return
		}
		limit = min(n, a.historyLimit)
	}

	items, err := a.accounts.ListHistory(r.Context(), session.UserID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]historyResponse, 0, len(items))
	for _, item := range items {
		config := json.RawMessage(item.ConfigJSON)
		if !json.Valid(config) {
			config = json.RawMessage("null")
		}
		out = append(out, historyResponse{
			ID:        item.ID,
			Image:     item.ImageData,
			Config:    config,
			Provider:  item.Provider,
			Model:     item.Model,
			CreatedAt: item.CreatedAt,
		})
	}
	a.respond.JSON(w, http.StatusOK, out)
}

func (a *API) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.accounts.DeleteHistoryItem(r.Context(), session.UserID, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newGenerateResponse(outcome studio.Outcome) generateResponse {
	return generateResponse{
		Image:                  outcome.Result.ImageData,
		Provider:               string(outcome.Result.ProviderUsed),
		Model:                  outcome.Result.Model,
		UsedFallback:           outcome.Result.UsedFallback,
		SubstitutedDescription: outcome.Result.SubstitutedDescription,
		Credits:                outcome.Credits,
	}
}

// session returns the caller's session. The auth middleware guarantees one
// on protected routes; a missing one is answered with 401.
func (a *API) session(w http.ResponseWriter, r *http.Request) (core.Session, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		a.respond.Error(w, r, http.StatusUnauthorized, messages.KeyUnauthorized, nil)
	}
	return session, ok
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		a.respond.Error(w, r, status, messages.KeyInvalidRequest, err)
		return false
	}
	return true
}

func (a *API) allow(w http.ResponseWriter, r *http.Request, userID string) bool {
	if a.limiter == nil {
		return true
	}
	allowed, wait := a.limiter.Allow(userID)
	if allowed {
		return true
	}
	a.logger.Info("generate rate limited", logging.UserID(userID), zap.Duration("retry_after", wait))
	RetryAfter(w, wait)
	a.respond.Error(w, r, http.StatusTooManyRequests, messages.KeyRateLimited, nil)
	return false
}

// fail classifies err, logs it with the provider message and writes the
// localized response.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, key := ClassifyError(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", key),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", fields...)
	} else {
		a.logger.Info("request rejected", fields...)
	}
	a.respond.Error(w, r, status, key, err)
}
