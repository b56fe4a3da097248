package auth

import (
	"net/http"

	"go.uber.org/zap"

	"caricature_studio/webui"
)

// logoutHandler ends the caller's session and clears the cookie.
//
// POST /api/auth/logout answers 204 whether or not a session existed, so
// repeating it is harmless.
func logoutHandler(m *AuthMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := ParseSessionCookie(r, m.cookieConfig.Name)
		if err != nil {
			m.logger.Debug("logout: no session cookie found",
				zap.String("ip", webui.ClientIP(r)),
			)
			if cookie, err := ClearSessionCookie(m.cookieConfig); err == nil {
				http.SetCookie(w, cookie)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		m.destroySession(w, sessionID)
		w.WriteHeader(http.StatusNoContent)
	}
}
