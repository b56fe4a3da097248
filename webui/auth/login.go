package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"caricature_studio/db"
	"caricature_studio/imagegen"
	"caricature_studio/logging"
	"caricature_studio/messages"
	"caricature_studio/webui"
)

// MaxEmailLength bounds stored addresses.
const MaxEmailLength = 254

const internalErrorKey = string(imagegen.KindUnknown)

var errInvalidEmail = errors.New("invalid email address")

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountResponse is returned by register and login.
type accountResponse struct {
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

// normalizeEmail trims and lower-cases addr and rejects anything that is not
// a bare address.
func normalizeEmail(addr string) (string, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || len(addr) > MaxEmailLength {
		return "", errInvalidEmail
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", errInvalidEmail
	}
	return addr, nil
}

func decodeCredentials(w http.ResponseWriter, r *http.Request, m *AuthMiddleware) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.respond.Error(w, r, http.StatusBadRequest, messages.KeyInvalidRequest, err)
		return req, false
	}
	return req, true
}

// registerHandler creates an account with the initial credits and logs it
// in.
//
// POST /api/auth/register {email, password}
//   - 201 {email, credits} and a session cookie
//   - 400 invalid_request for a malformed email or a weak password
//   - 409 email_taken
func registerHandler(m *AuthMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCredentials(w, r, m)
		if !ok {
			return
		}
		email, err := normalizeEmail(req.Email)
		if err != nil {
			m.respond.Error(w, r, http.StatusBadRequest, messages.KeyInvalidRequest, err)
			return
		}
		if err := ValidatePassword(req.Password); err != nil {
			m.respond.Error(w, r, http.StatusBadRequest, messages.KeyInvalidRequest, err)
			return
		}

		hash, err := HashPassword(req.Password, m.passwordCost)
		if err != nil {
			m.logger.Error("register: failed to hash password", zap.Error(err))
			m.respond.Error(w, r, http.StatusInternalServerError, internalErrorKey, err)
			return
		}

		user, err := m.users.CreateUser(r.Context(), email, hash)
		if errors.Is(err, db.ErrEmailTaken) {
			m.respond.Error(w, r, http.StatusConflict, messages.KeyEmailTaken, err)
			return
		}
		if err != nil {
			m.logger.Error("register: failed to create user", zap.Error(err))
			m.respond.Error(w, r, http.StatusInternalServerError, internalErrorKey, err)
			return
		}

		if _, err := m.createSession(w, user); err != nil {
			m.logger.Error("register: failed to create session", logging.UserID(user.ID), zap.Error(err))
			m.respond.Error(w, r, http.StatusInternalServerError, internalErrorKey, err)
			return
		}

		m.logger.Info("account registered",
			logging.UserID(user.ID),
			zap.String("ip", webui.ClientIP(r)),
		)
		m.respond.JSON(w, http.StatusCreated, accountResponse{Email: user.Email, Credits: user.Credits})
	}
}

// loginHandler authenticates with email and password.
//
// POST /api/auth/login {email, password}
//  1. Checks the failed-login limit for the client IP (429 login_blocked)
//  2. Looks up the account and verifies the bcrypt hash
//  3. On failure: records the attempt, waits FailedLoginDelay, 401 invalid_login
//  4. On success: resets the limit, touches last_login_at, sets the cookie
func loginHandler(m *AuthMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := webui.ClientIP(r)

		if allowed, remaining := m.rateLimiter.Allow(clientIP); !allowed {
			m.logger.Warn("login: rate limit exceeded",
				zap.String("ip", clientIP),
				zap.Duration("remaining", remaining),
			)
			webui.RetryAfter(w, remaining)
			m.respond.Error(w, r, http.StatusTooManyRequests, messages.KeyLoginBlocked, nil)
			return
		}

		req, ok := decodeCredentials(w, r, m)
		if !ok {
			return
		}

		user, err := m.authenticate(r, req)
		if err != nil {
			m.rateLimiter.RecordAttempt(clientIP)
			m.logger.Info("login: authentication failed",
				zap.String("ip", clientIP),
				zap.Int("attempts", m.rateLimiter.GetAttemptCount(clientIP)),
			)
			m.sleepAfterFailure(r.Context())
			m.respond.Error(w, r, http.StatusUnauthorized, messages.KeyInvalidLogin, nil)
			return
		}

		m.rateLimiter.Reset(clientIP)
		if err := m.users.TouchLogin(r.Context(), user.ID); err != nil {
			m.logger.Warn("login: failed to record login time", logging.UserID(user.ID), zap.Error(err))
		}

		if _, err := m.createSession(w, user); err != nil {
			m.logger.Error("login: failed to create session", logging.UserID(user.ID), zap.Error(err))
			m.respond.Error(w, r, http.StatusInternalServerError, internalErrorKey, err)
			return
		}

		m.logger.Info("login: authentication successful",
			logging.UserID(user.ID),
			zap.String("ip", clientIP),
		)
		m.respond.JSON(w, http.StatusOK, accountResponse{Email: user.Email, Credits: user.Credits})
	}
}

// authenticate returns the account only when both the email and the password
// match. Callers cannot tell which one was wrong.
func (m *AuthMiddleware) authenticate(r *http.Request, req credentialsRequest) (db.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return db.User{}, err
	}
	user, err := m.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			m.logger.Error("login: failed to load user", zap.Error(err))
		}
		return db.User{}, err
	}
	if err := VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return db.User{}, err
	}
	return user, nil
}
