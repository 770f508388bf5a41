package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calendariko/calendariko/internal/user"
)

func TestUserMiddleware(t *testing.T) {
	var seen user.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = user.CurrentUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name     string
		allowed  []user.Role
		role     string
		wantCode int
		wantRole user.Role
		wantErr  string
	}{
		{"missing role is an artist", nil, "", http.StatusNoContent, user.RoleArtist, ""},
		{"admin in any case", nil, "admin", http.StatusNoContent, user.RoleAdmin, ""},
		{"unknown role", nil, "MANAGER", http.StatusBadRequest, "", ErrCodeInvalidRole},
		{"role outside the allowed set", []user.Role{user.RoleAdmin}, "ARTIST", http.StatusForbidden, "", ErrCodeRoleNotAllowed},
		{"role inside the allowed set", []user.Role{user.RoleAdmin}, "ADMIN", http.StatusNoContent, user.RoleAdmin, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = user.User{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderUserID, "u-42")
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			w := httptest.NewRecorder()

			UserMiddleware(tc.allowed)(next).ServeHTTP(w, req)

			require.Equal(t, tc.wantCode, w.Code)
			if tc.wantErr != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tc.wantErr, resp.Error)
				assert.Equal(t, user.User{}, seen)
				return
			}
			assert.Equal(t, user.User{ID: "u-42", Role: tc.wantRole}, seen)
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pot", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}
