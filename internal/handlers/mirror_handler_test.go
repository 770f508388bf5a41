package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/calendariko/calendariko/internal/gcal"
	"github.com/calendariko/calendariko/internal/scheduler"
	"github.com/calendariko/calendariko/internal/user"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunNow(ctx context.Context) (gcal.SyncResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(gcal.SyncResult), args.Error(1)
}

func (m *mockRunner) Stats() scheduler.Stats {
	args := m.Called()
	return args.Get(0).(scheduler.Stats)
}

type mockCalendars struct {
	mock.Mock
}

func (m *mockCalendars) Calendars(ctx context.Context) ([]gcal.CalendarInfo, error) {
	args := m.Called(ctx)
	calendars, _ := args.Get(0).([]gcal.CalendarInfo)
	return calendars, args.Error(1)
}

func TestMirrorSync(t *testing.T) {
	testCases := []struct {
		name      string
		role      user.Role
		enabled   bool
		result    gcal.SyncResult
		err       error
		wantCode  int
		wantErr   string
		wantCalls bool
	}{
		{"success", user.RoleAdmin, true, gcal.SyncResult{Pushed: 3, Removed: 1}, nil, http.StatusOK, "", true},
		{"artists are forbidden", user.RoleArtist, true, gcal.SyncResult{}, nil, http.StatusForbidden, ErrCodeForbidden, false},
		{"already running", user.RoleAdmin, true, gcal.SyncResult{}, scheduler.ErrSyncInProgress, http.StatusConflict, ErrCodeSyncInProgress, true},
		{"remote failure", user.RoleAdmin, true, gcal.SyncResult{}, errors.New("boom"), http.StatusBadGateway, ErrCodeSyncFailed, true},
		{"mirror disabled", user.RoleAdmin, false, gcal.SyncResult{}, nil, http.StatusServiceUnavailable, ErrCodeMirrorDisabled, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			base := setupTestBaseHandler(t)
			runnerMock := new(mockRunner)
			if tc.wantCalls {
				runnerMock.On("RunNow", mock.Anything).Return(tc.result, tc.err).Once()
			}
			if tc.wantCalls && tc.err == nil {
				runnerMock.On("Stats").Return(scheduler.Stats{Runs: 1})
			}

			var runner SyncRunner
			if tc.enabled {
				runner = runnerMock
			}
			router := NewRouter(base, runner, nil, nil)

			w := serve(router, newRequest(http.MethodPost, "/api/mirror/sync", nil, tc.role))
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			runnerMock.AssertExpectations(t)

			if tc.wantErr != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tc.wantErr, resp.Error)
				return
			}
			var resp SyncResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, tc.result, resp.Result)
			assert.Equal(t, int64(1), resp.Stats.Runs)
		})
	}
}

func TestMirrorCalendars(t *testing.T) {
	base := setupTestBaseHandler(t)
	calendars := []gcal.CalendarInfo{{ID: "primary", Summary: "Me", Primary: true, Selected: true}}

	lister := new(mockCalendars)
	lister.On("Calendars", mock.Anything).Return(calendars, nil).Once()
	lister.On("Calendars", mock.Anything).Return(nil, errors.New("unauthorized")).Once()
	router := NewRouter(base, nil, lister, nil)

	w := serve(router, newRequest(http.MethodGet, "/api/mirror/calendars", nil, user.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	var got []gcal.CalendarInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, calendars, got)

	w = serve(router, newRequest(http.MethodGet, "/api/mirror/calendars", nil, user.RoleAdmin))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = serve(router, newRequest(http.MethodGet, "/api/mirror/calendars", nil, user.RoleArtist))
	assert.Equal(t, http.StatusForbidden, w.Code)
	lister.AssertExpectations(t)

	disabled := NewRouter(base, nil, nil, nil)
	w = serve(disabled, newRequest(http.MethodGet, "/api/mirror/calendars", nil, user.RoleAdmin))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
