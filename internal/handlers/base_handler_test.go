package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/user"
	"github.com/calendariko/calendariko/internal/viewhelpers"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func setupTestBaseHandler(t *testing.T) *BaseHandler {
	t.Helper()

	db, err := database.New(database.NewMemoryOptions())
	require.NoError(t, err)
	require.NoError(t, db.MigrateDatabase())
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return NewBaseHandler(
		database.NewEventStore(db),
		database.NewAvailabilityStore(db),
		&dates.MockClock{FixedNow: testNow},
		time.UTC,
		viewhelpers.DefaultLayout(),
	)
}

func fee(v float64) *float64 {
	return &v
}

// seedRecords stores a confirmed gig with a fee, an optioned rehearsal and a
// busy marker in March 2024.
func seedRecords(t *testing.T, h *BaseHandler) {
	t.Helper()
	ctx := context.Background()

	_, err := h.Events.Save(ctx, records.Event{ID: "gig-1", Title: "Club Show", Date: "2024-03-15", StartTime: "21:00", EndTime: "23:00", Venue: "Club", Fee: fee(1500), Status: "CONFIRMED", GroupName: "The Band"})
	require.NoError(t, err)
	_, err = h.Events.Save(ctx, records.Event{ID: "rehearsal-1", Title: "Rehearsal", Date: "2024-03-12", Status: "OPTION"})
	require.NoError(t, err)
	_, err = h.Availability.Save(ctx, records.Availability{ID: "busy-1", Date: "2024-03-15", Type: records.AvailabilityBusy, UserName: "Ana"})
	require.NoError(t, err)
}

// newRequest builds a request carrying the identity both as gateway headers
// and as the context value the middleware would set.
func newRequest(method, target string, body any, role user.Role) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserRole, string(role))
	return req.WithContext(user.WithUser(req.Context(), user.User{ID: "user-1", Role: role}))
}

func TestMatchesETag(t *testing.T) {
	etag := `"abc123"`

	testCases := []struct {
		name        string
		ifNoneMatch string
		want        bool
	}{
		{"exact match", `"abc123"`, true},
		{"wildcard", "*", true},
		{"weak match", `W/"abc123"`, true},
		{"list containing match", `"zzz", "abc123"`, true},
		{"no match", `"zzz"`, false},
		{"unquoted", `abc123`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesETag(tc.ifNoneMatch, etag))
		})
	}
}

func TestParseETags(t *testing.T) {
	assert.Equal(t, []string{`"a"`, `W/"b"`}, parseETags(` "a" , W/"b",, `))
	assert.Empty(t, parseETags(""))
}

func TestWriteCachedJSON(t *testing.T) {
	h := setupTestBaseHandler(t)
	payload := map[string]string{"hello": "world"}

	first := httptest.NewRecorder()
	h.writeCachedJSON(first, httptest.NewRequest(http.MethodGet, "/", nil), payload)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "application/json", first.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, first.Body.String())

	t.Run("matching If-None-Match returns 304", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("If-None-Match", etag)
		w := httptest.NewRecorder()
		h.writeCachedJSON(w, req, payload)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, etag, w.Header().Get("ETag"))
	})

	t.Run("changed payload gets a new ETag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("If-None-Match", etag)
		w := httptest.NewRecorder()
		h.writeCachedJSON(w, req, map[string]string{"hello": "there"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEqual(t, etag, w.Header().Get("ETag"))
	})
}

func TestParseRange(t *testing.T) {
	h := setupTestBaseHandler(t)

	testCases := []struct {
		name     string
		query    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{"defaults to current month", "", "2024-03-01", "2024-03-31", false},
		{"from only ends with its month", "?from=2024-02-10", "2024-02-10", "2024-02-29", false},
		{"explicit range", "?from=2024-01-01&to=2024-01-07", "2024-01-01", "2024-01-07", false},
		{"to before from", "?from=2024-01-07&to=2024-01-01", "", "", true},
		{"full leap year", "?from=2024-01-01&to=2024-12-31", "2024-01-01", "2024-12-31", false},
		{"longer than a year", "?from=2024-01-01&to=2025-01-01", "", "", true},
		{"centuries", "?from=1900-01-01&to=2100-12-31", "", "", true},
		{"invalid from", "?from=yesterday", "", "", true},
		{"invalid to", "?to=2024-13-01", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := h.parseRange(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFrom, dates.FormatISO(from))
			assert.Equal(t, tc.wantTo, dates.FormatISO(to))
		})
	}
}

func TestRedactEvents(t *testing.T) {
	events := []records.Event{{ID: "a", Fee: fee(10)}, {ID: "b"}}

	assert.Equal(t, events, redactEvents(events, user.RoleAdmin))

	redacted := redactEvents(events, user.RoleArtist)
	assert.Nil(t, redacted[0].Fee)
	assert.NotNil(t, events[0].Fee, "input must not be modified")
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, ErrorMessages[ErrCodeForbidden], GetErrorMessage(ErrCodeForbidden))
	assert.Equal(t, ErrorMessages[ErrCodeUnknown], GetErrorMessage("nope"))
}
