package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calendariko/calendariko/internal/user"
)

// NewRouter wires every handler. Health is reachable without identity
// headers; everything else passes through UserMiddleware.
func NewRouter(base *BaseHandler, runner SyncRunner, calendars CalendarLister, allowed []user.Role) http.Handler {
	root := mux.NewRouter()
	NewHealthHandler(base, runner).RegisterRoutes(root)

	api := root.NewRoute().Subrouter()
	api.Use(UserMiddleware(allowed))
	NewCalendarHandler(base).RegisterRoutes(api)
	NewRecordsHandler(base).RegisterRoutes(api)
	NewMirrorHandler(base, runner, calendars).RegisterRoutes(api)

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = respondError(w, http.StatusNotFound, ErrCodeNotFound, "")
	})
	return RequestLogger(root)
}
