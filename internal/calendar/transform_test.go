package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calendariko/calendariko/internal/records"
)

func TestFromEvent(t *testing.T) {
	fee := 800.0

	testCases := []struct {
		name     string
		event    records.Event
		expected Entry
		ok       bool
	}{
		{
			name:  "confirmed with date and clock",
			event: records.Event{ID: "1", Title: "Jazz Night", Date: "2024-03-15", StartTime: "20:00", EndTime: "23:00", Status: "CONFIRMED"},
			expected: Entry{
				ID: "1", Title: "Jazz Night", Date: "2024-03-15", Time: "20:00", EndTime: "23:00", Kind: KindConfirmed,
			},
			ok: true,
		},
		{
			name:  "spanish confirmed status any case",
			event: records.Event{ID: "2", Title: "Boda", Date: "2024-03-16", Status: "confirmado"},
			expected: Entry{
				ID: "2", Title: "Boda", Date: "2024-03-16", Kind: KindConfirmed,
			},
			ok: true,
		},
		{
			name:  "timestamp start without date",
			event: records.Event{ID: "3", Title: "Late set", StartTime: "2024-03-17T23:30:00+02:00", Status: "OPTIONED"},
			expected: Entry{
				ID: "3", Title: "Late set", Date: "2024-03-17", Time: "23:30", Kind: KindOptioned,
			},
			ok: true,
		},
		{
			name: "metadata carried over",
			event: records.Event{
				ID: "4", Title: "Festival", Date: "2024-03-18", Fee: &fee, Venue: "Park",
				GroupID: "g1", Notes: "outdoor", ContactResponsible: "Luis",
			},
			expected: Entry{
				ID: "4", Title: "Festival", Date: "2024-03-18", Kind: KindOptioned, Fee: &fee, Venue: "Park",
				GroupRef: "g1", Notes: "outdoor", ContactResponsible: "Luis",
			},
			ok: true,
		},
		{
			name:  "group name preferred over id",
			event: records.Event{ID: "5", Title: "Gig", Date: "2024-03-19", GroupID: "g1", GroupName: "The Trio"},
			expected: Entry{
				ID: "5", Title: "Gig", Date: "2024-03-19", Kind: KindOptioned, GroupRef: "The Trio",
			},
			ok: true,
		},
		{name: "unparseable date", event: records.Event{ID: "6", Title: "Bad", Date: "15/03/2024"}, ok: false},
		{name: "clock only start", event: records.Event{ID: "7", Title: "Bad", StartTime: "20:00"}, ok: false},
		{name: "missing title", event: records.Event{ID: "8", Date: "2024-03-15"}, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FromEvent(tc.event)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestFromAvailability(t *testing.T) {
	t.Run("busy group marker", func(t *testing.T) {
		got, ok := FromAvailability(records.Availability{
			ID: "9", Date: "2024-03-15T00:00:00Z", Type: records.AvailabilityBusy, GroupName: "The Trio",
		})
		require.True(t, ok)
		assert.Equal(t, "availability-9", got.ID)
		assert.Equal(t, "2024-03-15", got.Date)
		assert.Empty(t, got.Time)
		assert.Equal(t, KindBusy, got.Kind)
		assert.Equal(t, "❌ The Trio", got.Title)
	})

	t.Run("falls back to user then generic title", func(t *testing.T) {
		got, ok := FromAvailability(records.Availability{ID: "1", Date: "2024-03-15", Type: records.AvailabilityBusy, UserName: "Marta", UserID: "u1"})
		require.True(t, ok)
		assert.Equal(t, "❌ Marta", got.Title)
		assert.Equal(t, "Marta", got.UserRef)

		got, ok = FromAvailability(records.Availability{ID: "2", Date: "2024-03-15", Type: records.AvailabilityBusy})
		require.True(t, ok)
		assert.Equal(t, "❌ Busy", got.Title)
	})

	t.Run("available markers produce nothing", func(t *testing.T) {
		_, ok := FromAvailability(records.Availability{ID: "3", Date: "2024-03-15", Type: records.AvailabilityAvailable})
		assert.False(t, ok)
	})

	t.Run("unresolvable date", func(t *testing.T) {
		_, ok := FromAvailability(records.Availability{ID: "4", Date: "soon", Type: records.AvailabilityBusy})
		assert.False(t, ok)
	})
}

func TestRedactForRole(t *testing.T) {
	fee := 100.0
	entries := []Entry{{ID: "1", Fee: &fee}}

	assert.Same(t, &fee, RedactForRole(entries, "ADMIN")[0].Fee)
	assert.Nil(t, RedactForRole(entries, "ARTIST")[0].Fee)
	assert.NotNil(t, entries[0].Fee, "input must not be modified")
}
