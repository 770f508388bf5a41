package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/user"
)

func sampleEntries() []Entry {
	return []Entry{
		{ID: "1", Title: "First", Date: "2024-03-15", Kind: KindOptioned},
		{ID: "availability-7", Title: "❌ The Trio", Date: "2024-03-15", Kind: KindBusy},
		{ID: "2", Title: "Second", Date: "2024-03-15", Kind: KindConfirmed},
		{ID: "3", Title: "Other day", Date: "2024-03-16", Kind: KindOptioned},
	}
}

func TestAggregatePreservesSourceOrder(t *testing.T) {
	agg := Aggregate(sampleEntries(), user.RoleArtist)

	require.Len(t, agg.Entries("2024-03-15"), 3)
	ids := []string{}
	for _, e := range agg.Entries("2024-03-15") {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "availability-7", "2"}, ids)
	assert.Equal(t, []string{"2024-03-15", "2024-03-16"}, agg.Dates())
	assert.Nil(t, agg.Entries("2024-03-17"))
}

func TestAggregateHidesBusyFromAdmins(t *testing.T) {
	agg := Aggregate(sampleEntries(), user.RoleAdmin)

	for date, entries := range agg {
		for _, e := range entries {
			assert.NotEqual(t, KindBusy, e.Kind, "busy marker on %s", date)
		}
	}
	assert.Len(t, agg.Entries("2024-03-15"), 2)

	busyOnly := []Entry{{ID: "availability-9", Date: "2024-03-15", Kind: KindBusy}}
	_, present := Aggregate(busyOnly, user.RoleAdmin)["2024-03-15"]
	assert.False(t, present)
}

func TestSummary(t *testing.T) {
	testCases := []struct {
		name     string
		kinds    []Kind
		expected Kind
	}{
		{name: "busy wins", kinds: []Kind{KindOptioned, KindBusy, KindConfirmed}, expected: KindBusy},
		{name: "confirmed over optioned", kinds: []Kind{KindOptioned, KindConfirmed}, expected: KindConfirmed},
		{name: "optioned alone", kinds: []Kind{KindOptioned}, expected: KindOptioned},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries := make([]Entry, len(tc.kinds))
			for i, k := range tc.kinds {
				entries[i] = Entry{Date: "2024-03-15", Kind: k}
			}
			kind, ok := Aggregate(entries, user.RoleArtist).Summary("2024-03-15")
			require.True(t, ok)
			assert.Equal(t, tc.expected, kind)
		})
	}

	_, ok := Aggregation{}.Summary("2024-03-15")
	assert.False(t, ok)
}

func TestCompact(t *testing.T) {
	agg := Aggregate(sampleEntries(), user.RoleArtist)

	visible, overflow := agg.Compact("2024-03-15", MonthCellLimit)
	assert.Len(t, visible, 2)
	assert.Equal(t, "1", visible[0].ID)
	assert.Equal(t, 1, overflow)

	visible, overflow = agg.Compact("2024-03-16", MonthCellLimit)
	assert.Len(t, visible, 1)
	assert.Zero(t, overflow)

	visible, overflow = agg.Compact("2024-03-20", MonthCellLimit)
	assert.Empty(t, visible)
	assert.Zero(t, overflow)
}

func TestBuild(t *testing.T) {
	fee := 1200.0
	events := []records.Event{
		{ID: "1", Title: "Jazz Night", Date: "2024-03-15", StartTime: "20:00", EndTime: "23:00", Status: "CONFIRMED", Fee: &fee},
		{ID: "2", Title: "Broken", Date: "someday"},
	}
	availability := []records.Availability{
		{ID: "7", Date: "2024-03-15T00:00:00Z", Type: records.AvailabilityBusy, GroupName: "The Trio"},
		{ID: "8", Date: "2024-03-16", Type: records.AvailabilityAvailable},
		{ID: "9", Date: "", Type: records.AvailabilityBusy},
	}

	t.Run("artist", func(t *testing.T) {
		agg, report := Build(events, availability, user.RoleArtist)

		require.Len(t, agg.Entries("2024-03-15"), 2)
		assert.Nil(t, agg.Entries("2024-03-15")[0].Fee)
		assert.Equal(t, KindBusy, agg.Entries("2024-03-15")[1].Kind)
		assert.Nil(t, agg.Entries("2024-03-16"))

		assert.Equal(t, 1, report.Events)
		assert.Equal(t, 1, report.Availability)
		assert.Equal(t, []string{"2"}, report.SkippedEvents)
		assert.Equal(t, []string{"9"}, report.SkippedAvailability)
		assert.Equal(t, 2, report.Skipped())
	})

	t.Run("admin", func(t *testing.T) {
		agg, _ := Build(events, availability, user.RoleAdmin)

		require.Len(t, agg.Entries("2024-03-15"), 1)
		assert.Equal(t, KindConfirmed, agg.Entries("2024-03-15")[0].Kind)
		require.NotNil(t, agg.Entries("2024-03-15")[0].Fee)
		assert.Equal(t, 1200.0, *agg.Entries("2024-03-15")[0].Fee)
	})

	t.Run("idempotent", func(t *testing.T) {
		first, _ := Build(events, availability, user.RoleArtist)
		second, _ := Build(events, availability, user.RoleArtist)
		assert.Equal(t, first, second)
	})
}
