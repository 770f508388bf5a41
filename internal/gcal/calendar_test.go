package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	cal "github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/config"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/records"
)

// fakeGoogle is a minimal in-memory Calendar API.
type fakeGoogle struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	inserts int
	updates int
	deletes int
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	const prefix = "/calendars/primary/events"

	switch {
	case r.URL.Path == "/users/me/calendarList" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "me@example.com", Summary: "Me", Primary: true},
			{Id: "band@group.calendar.google.com", Summary: "Band"},
		}})

	case r.URL.Path == prefix && r.Method == http.MethodPost:
		var ev calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, exists := f.events[ev.Id]; exists {
			writeAPIError(w, http.StatusConflict, "The requested identifier already exists.")
			return
		}
		f.inserts++
		f.events[ev.Id] = &ev
		_ = json.NewEncoder(w).Encode(ev)

	case strings.HasPrefix(r.URL.Path, prefix+"/"):
		id := strings.TrimPrefix(r.URL.Path, prefix+"/")
		switch r.Method {
		case http.MethodPut:
			var ev calendar.Event
			if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
				writeAPIError(w, http.StatusBadRequest, err.Error())
				return
			}
			f.updates++
			f.events[id] = &ev
			_ = json.NewEncoder(w).Encode(ev)
		case http.MethodDelete:
			if _, exists := f.events[id]; !exists {
				writeAPIError(w, http.StatusNotFound, "Not Found")
				return
			}
			f.deletes++
			delete(f.events, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			writeAPIError(w, http.StatusMethodNotAllowed, r.Method)
		}

	default:
		writeAPIError(w, http.StatusNotFound, r.URL.Path)
	}
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

type fakeEvents struct {
	events []records.Event
}

func (f *fakeEvents) ListRange(ctx context.Context, from, to time.Time) ([]records.Event, error) {
	return f.events, nil
}

type fakeState struct {
	mu      sync.Mutex
	remote  map[string]string
	dayOf   map[string]string
	forgets int
}

func newFakeState() *fakeState {
	return &fakeState{remote: map[string]string{}, dayOf: map[string]string{}}
}

func (f *fakeState) Mark(ctx context.Context, entryID, remoteID, day string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote[entryID] = remoteID
	f.dayOf[entryID] = day
	return nil
}

func (f *fakeState) Forget(ctx context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.remote, entryID)
	delete(f.dayOf, entryID)
	f.forgets++
	return nil
}

func (f *fakeState) Mirrored(ctx context.Context, from, to string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for id, remote := range f.remote {
		if day := f.dayOf[id]; day >= from && (to == "" || day <= to) {
			out[id] = remote
		}
	}
	return out, nil
}

func setupService(t *testing.T, events *fakeEvents, state *fakeState) (*Service, *fakeGoogle) {
	t.Helper()
	google := &fakeGoogle{events: map[string]*calendar.Event{}}
	srv := httptest.NewServer(google)
	t.Cleanup(srv.Close)

	clock := &dates.MockClock{FixedNow: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	cfg := config.GoogleConfig{CalendarID: "primary", LookAheadDays: 30}

	svc, err := New(context.Background(), cfg, "Europe/Madrid", events, state, clock,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return svc, google
}

func sampleEvents() []records.Event {
	return []records.Event{
		{ID: "gig", Title: "Jazz Night", Date: "2024-03-15", StartTime: "20:00", EndTime: "23:00", Venue: "Blue Room", Status: "CONFIRMED", GroupName: "Quartet"},
		{ID: "hold", Title: "Wedding", Date: "2024-03-20", Status: "OPTIONED"},
		{ID: "old", Title: "Past gig", Date: "2024-02-01", Status: "CONFIRMED"},
		{ID: "broken", Title: "No date"},
	}
}

func TestSync_PushesEventEntries(t *testing.T) {
	state := newFakeState()
	svc, google := setupService(t, &fakeEvents{events: sampleEvents()}, state)

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SyncResult{Pushed: 2, Removed: 0, Skipped: 1}, result)
	assert.Equal(t, 2, google.inserts)
	require.Len(t, google.events, 2)

	gig := google.events[RemoteID("gig")]
	require.NotNil(t, gig)
	assert.Equal(t, "Jazz Night", gig.Summary)
	assert.Equal(t, "Blue Room", gig.Location)
	assert.Equal(t, "confirmed", gig.Status)
	assert.Equal(t, "2024-03-15T20:00:00", gig.Start.DateTime)
	assert.Equal(t, "2024-03-15T23:00:00", gig.End.DateTime)
	assert.Equal(t, "Europe/Madrid", gig.Start.TimeZone)
	assert.Equal(t, "gig", gig.ExtendedProperties.Private["entryId"])
	assert.Contains(t, gig.Description, "Group: Quartet")

	hold := google.events[RemoteID("hold")]
	require.NotNil(t, hold)
	assert.Equal(t, "tentative", hold.Status)
	assert.Equal(t, "2024-03-20", hold.Start.Date)
	assert.Equal(t, "2024-03-21", hold.End.Date)

	assert.Equal(t, map[string]string{"gig": RemoteID("gig"), "hold": RemoteID("hold")}, state.remote)
}

func TestSync_ResyncUpdatesInsteadOfDuplicating(t *testing.T) {
	state := newFakeState()
	events := &fakeEvents{events: sampleEvents()}
	svc, google := setupService(t, events, state)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	events.events[0].Title = "Jazz Night (late set)"
	result, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pushed)
	assert.Equal(t, 2, google.inserts)
	assert.Equal(t, 2, google.updates)
	assert.Len(t, google.events, 2)
	assert.Equal(t, "Jazz Night (late set)", google.events[RemoteID("gig")].Summary)
}

func TestSync_RemovesStaleEntries(t *testing.T) {
	state := newFakeState()
	events := &fakeEvents{events: sampleEvents()}
	svc, google := setupService(t, events, state)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	// Drop the optioned hold and remember entries mirrored outside the window
	events.events = events.events[:1]
	require.NoError(t, state.Mark(context.Background(), "history", "remote-history", "2024-01-05"))
	require.NoError(t, state.Mark(context.Background(), "later", "remote-later", "2024-06-01"))

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 1, google.deletes)
	assert.NotContains(t, google.events, RemoteID("hold"))
	assert.Contains(t, state.remote, "history", "entries before the window stay mirrored")
	assert.Contains(t, state.remote, "later", "entries past the look-ahead window stay mirrored")
}

func TestSync_StaleEntryAlreadyGoneRemotely(t *testing.T) {
	state := newFakeState()
	svc, google := setupService(t, &fakeEvents{}, state)
	require.NoError(t, state.Mark(context.Background(), "ghost", RemoteID("ghost"), "2024-03-12"))

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Removed)
	assert.Zero(t, google.deletes)
	assert.Empty(t, state.remote)
}

func TestToEvent(t *testing.T) {
	svc := &Service{timezone: "UTC"}

	tests := []struct {
		name      string
		entry     cal.Entry
		wantStart string
		wantEnd   string
	}{
		{
			name:      "no end lasts one hour",
			entry:     cal.Entry{ID: "a", Date: "2024-03-15", Time: "20:00", Kind: cal.KindConfirmed},
			wantStart: "2024-03-15T20:00:00",
			wantEnd:   "2024-03-15T21:00:00",
		},
		{
			name:      "end equal to start lasts one hour",
			entry:     cal.Entry{ID: "b", Date: "2024-03-15", Time: "20:00", EndTime: "20:00", Kind: cal.KindConfirmed},
			wantStart: "2024-03-15T20:00:00",
			wantEnd:   "2024-03-15T21:00:00",
		},
		{
			name:      "overnight ends next day",
			entry:     cal.Entry{ID: "c", Date: "2024-03-15", Time: "22:00", EndTime: "02:00", Kind: cal.KindConfirmed},
			wantStart: "2024-03-15T22:00:00",
			wantEnd:   "2024-03-16T02:00:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := svc.toEvent(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, ev.Start.DateTime)
			assert.Equal(t, tt.wantEnd, ev.End.DateTime)
			assert.Equal(t, "UTC", ev.End.TimeZone)
		})
	}

	_, err := svc.toEvent(cal.Entry{ID: "bad", Date: "soon"})
	assert.Error(t, err)
}

func TestRemoteID(t *testing.T) {
	id := RemoteID("gig")
	assert.Len(t, id, 64)
	assert.Equal(t, id, RemoteID("gig"))
	assert.NotEqual(t, id, RemoteID("gig@2024-03-15"))
	for _, r := range id {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'v'), "rune %q is not base32hex", r)
	}
}

func TestCalendars(t *testing.T) {
	svc, _ := setupService(t, &fakeEvents{}, newFakeState())

	calendars, err := svc.Calendars(context.Background())
	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.True(t, calendars[0].Primary)
	assert.True(t, calendars[0].Selected)
	assert.False(t, calendars[1].Selected)
	assert.Equal(t, "primary", svc.CalendarID())
}
