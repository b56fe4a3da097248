package auth

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"caricature_studio/core"
	"caricature_studio/db"
	"caricature_studio/logging"
	"caricature_studio/messages"
	"caricature_studio/webui"
)

// Default configuration for the auth middleware.
const (
	DefaultRateLimitAttempts = core.DefaultMaxAttempts
	DefaultRateLimitWindow   = core.DefaultRateLimitWindow
	DefaultRateLimitBlock    = 30 * time.Minute
	DefaultSessionTTL        = core.DefaultSessionDuration

	// FailedLoginDelay slows down password guessing.
	FailedLoginDelay = 1 * time.Second
)

// UserStore persists accounts. db.Repository implements it.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	TouchLogin(ctx context.Context, userID string) error
}

// AuthMiddleware owns login sessions and the handlers that create and end
// them.
//
// It composes:
//   - UserStore for accounts and bcrypt hashes
//   - webui.SessionStore for cookie sessions
//   - webui.RateLimiter for failed-login throttling per client IP
type AuthMiddleware struct {
	users        UserStore
	sessions     *webui.SessionStore
	rateLimiter  *webui.RateLimiter
	respond      *webui.Responder
	logger       *logging.Logger
	cookieConfig CookieConfig
	passwordCost int
	failDelay    time.Duration
	onLogout     func(userID string)
}

// Config holds configuration options for the AuthMiddleware.
type Config struct {
	// SessionTTL is how long sessions remain valid (default: 24 hours)
	SessionTTL time.Duration

	// RateLimitAttempts is failed logins before blocking (default: 5)
	RateLimitAttempts int

	RateLimitWindow time.Duration
	RateLimitBlock  time.Duration

	// SecureCookies sets the Secure flag on cookies (true for HTTPS)
	SecureCookies bool

	// PasswordCost is the bcrypt cost for new hashes (default: DefaultCost)
	PasswordCost int

	// FailedLoginDelay is slept before answering a failed login. Negative
	// disables it.
	FailedLoginDelay time.Duration

	// OnLogout runs after a session is destroyed, e.g. to drop the user's
	// refinement state.
	OnLogout func(userID string)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionTTL:        DefaultSessionTTL,
		RateLimitAttempts: DefaultRateLimitAttempts,
		RateLimitWindow:   DefaultRateLimitWindow,
		RateLimitBlock:    DefaultRateLimitBlock,
		PasswordCost:      DefaultCost,
		FailedLoginDelay:  FailedLoginDelay,
	}
}

// NewAuthMiddleware creates the middleware. respond writes localized errors;
// nil uses the embedded catalog in the default locale.
func NewAuthMiddleware(users UserStore, respond *webui.Responder, logger *logging.Logger, cfg Config) *AuthMiddleware {
	defaults := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = defaults.PasswordCost
	}
	if cfg.FailedLoginDelay < 0 {
		cfg.FailedLoginDelay = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if respond == nil {
		respond = webui.NewResponder(nil, false, logger)
	}

	cookieConfig := DefaultCookieConfig()
	cookieConfig.Secure = cfg.SecureCookies
	cookieConfig.MaxAge = DurationToSeconds(cfg.SessionTTL)

	return &AuthMiddleware{
		users:        users,
		sessions:     webui.NewSessionStore(cfg.SessionTTL),
		rateLimiter:  webui.NewRateLimiter(cfg.RateLimitAttempts, cfg.RateLimitWindow, cfg.RateLimitBlock),
		respond:      respond,
		logger:       logger.Named("auth"),
		cookieConfig: cookieConfig,
		passwordCost: cfg.PasswordCost,
		failDelay:    cfg.FailedLoginDelay,
		onLogout:     cfg.OnLogout,
	}
}

// Middleware rejects requests without a valid session cookie with 401 and
// passes the rest on with the session in their context.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := ParseSessionCookie(r, m.cookieConfig.Name)
		if err != nil {
			m.logger.Debug("no session cookie found",
				zap.String("path", r.URL.Path),
				zap.String("ip", webui.ClientIP(r)),
			)
			m.respond.Error(w, r, http.StatusUnauthorized, messages.KeyUnauthorized, nil)
			return
		}

		session, err := m.sessions.Get(sessionID)
		if err != nil {
			m.logger.Debug("invalid session",
				zap.String("path", r.URL.Path),
				zap.String("ip", webui.ClientIP(r)),
				zap.Error(err),
			)
			m.respond.Error(w, r, http.StatusUnauthorized, messages.KeyUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(webui.WithSession(r.Context(), session)))
	})
}

// RegisterHandler, LoginHandler and LogoutHandler satisfy webui.AuthProvider.
func (m *AuthMiddleware) RegisterHandler() http.HandlerFunc { return registerHandler(m) }
func (m *AuthMiddleware) LoginHandler() http.HandlerFunc    { return loginHandler(m) }
func (m *AuthMiddleware) LogoutHandler() http.HandlerFunc   { return logoutHandler(m) }

// createSession starts a session for user and sets its cookie on w.
func (m *AuthMiddleware) createSession(w http.ResponseWriter, user db.User) (core.Session, error) {
	session, err := m.sessions.Create(user.ID, user.Email)
	if err != nil {
		return core.Session{}, err
	}
	cookie, err := NewSessionCookie(session.ID, m.cookieConfig)
	if err != nil {
		m.sessions.Delete(session.ID)
		return core.Session{}, err
	}
	http.SetCookie(w, cookie)

	m.logger.Info("session created",
		logging.UserID(user.ID),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// destroySession removes the session and clears the cookie on w.
func (m *AuthMiddleware) destroySession(w http.ResponseWriter, sessionID string) {
	if session, err := m.sessions.Get(sessionID); err == nil {
		m.sessions.Delete(sessionID)
		m.logger.Info("session destroyed", logging.UserID(session.UserID))
		if m.onLogout != nil {
			m.onLogout(session.UserID)
		}
	}
	if cookie, err := ClearSessionCookie(m.cookieConfig); err == nil {
		http.SetCookie(w, cookie)
	}
}

// SessionStore returns the underlying session store for the cleanup ticker.
func (m *AuthMiddleware) SessionStore() *webui.SessionStore {
	return m.sessions
}

// RateLimiter returns the underlying rate limiter for the cleanup ticker.
func (m *AuthMiddleware) RateLimiter() *webui.RateLimiter {
	return m.rateLimiter
}

func (m *AuthMiddleware) sleepAfterFailure(ctx context.Context) {
	if m.failDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.failDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
