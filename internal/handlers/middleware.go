package handlers

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/user"
)

// Identity headers set by the fronting gateway
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// UserMiddleware propagates the gateway identity headers into the request
// context. A missing role means ARTIST.
func UserMiddleware(allowed []user.Role) mux.MiddlewareFunc {
	logger := logging.GetLogger("user-middleware")
	allowedSet := make(map[user.Role]bool, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := user.ParseRole(r.Header.Get(HeaderUserRole))
			if err != nil {
				logger.Debug().Err(err).Msg("Rejecting request with unknown role")
				_ = respondError(w, http.StatusBadRequest, ErrCodeInvalidRole, err.Error())
				return
			}
			if len(allowedSet) > 0 && !allowedSet[role] {
				logger.Debug().Str("role", string(role)).Msg("Rejecting request from disallowed role")
				_ = respondError(w, http.StatusForbidden, ErrCodeRoleNotAllowed, "")
				return
			}

			u := user.User{ID: r.Header.Get(HeaderUserID), Role: role}
			next.ServeHTTP(w, r.WithContext(user.WithUser(r.Context(), u)))
		})
	}
}

// RequestLogger logs every request with its status and duration
func RequestLogger(next http.Handler) http.Handler {
	logger := logging.GetLogger("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		event := logger.Debug()
		if m.Code >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", m.Code).
			Int64("bytes", m.Written).
			Dur("duration", m.Duration).
			Msg("Handled request")
	})
}
