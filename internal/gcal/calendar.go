// Package gcal mirrors confirmed and optioned gigs to a Google calendar.
package gcal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	cal "github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/config"
	"github.com/calendariko/calendariko/internal/constants"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/user"
)

const pushConcurrency = 2

// EventSource lists the event records of an inclusive date range.
type EventSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]records.Event, error)
}

// MirrorState remembers which entries exist remotely.
type MirrorState interface {
	Mark(ctx context.Context, entryID, remoteID, day string) error
	Forget(ctx context.Context, entryID string) error
	Mirrored(ctx context.Context, from, to string) (map[string]string, error)
}

// SyncResult summarises one mirror run.
type SyncResult struct {
	Pushed  int `json:"pushed"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// Service handles Google Calendar operations
type Service struct {
	calendarID    string
	timezone      string
	lookAheadDays int
	srv           *calendar.Service
	events        EventSource
	state         MirrorState
	clock         dates.Clock
	builder       *cal.Builder
	logger        zerolog.Logger
}

// New creates the mirror service. opts carry the authenticated HTTP client.
func New(ctx context.Context, cfg config.GoogleConfig, timezone string, events EventSource, state MirrorState, clock dates.Clock, opts ...option.ClientOption) (*Service, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Service{
		calendarID:    cfg.CalendarID,
		timezone:      timezone,
		lookAheadDays: cfg.LookAheadDays,
		srv:           srv,
		events:        events,
		state:         state,
		clock:         clock,
		builder:       cal.NewBuilder(),
		logger:        logging.GetLogger("gcal"),
	}, nil
}

// RemoteID derives the Google event id of an entry. Google only accepts
// lowercase base32hex characters, which hex digits are a subset of.
func RemoteID(entryID string) string {
	sum := sha256.Sum256([]byte(constants.AppIdentifier + ":" + entryID))
	return hex.EncodeToString(sum[:])
}

// Sync pushes every event entry of the look-ahead window and removes the
// mirrored entries of that window that no longer exist.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	from := dates.Today(s.clock)
	to := dates.AddDays(from, s.lookAheadDays)
	s.logger.Info().Str("from", dates.FormatISO(from)).Str("to", dates.FormatISO(to)).Str("calendar_id", s.calendarID).Msg("Starting mirror sync")

	evs, err := s.events.ListRange(ctx, from, to)
	if err != nil {
		return result, fmt.Errorf("failed to list events: %w", err)
	}

	agg, report := s.builder.Build(evs, nil, user.RoleAdmin)
	result.Skipped = report.Skipped()

	fromKey, toKey := dates.FormatISO(from), dates.FormatISO(to)
	var wanted []cal.Entry
	for _, day := range agg.Dates() {
		if day < fromKey || day > toKey {
			continue
		}
		for _, e := range agg.Entries(day) {
			if e.Kind.IsEvent() {
				wanted = append(wanted, e)
			}
		}
	}
	s.logger.Debug().Int("entries", len(wanted)).Int("skipped", result.Skipped).Msg("Collected entries to mirror")

	var (
		mu     sync.Mutex
		merr   *multierror.Error
		wg     sync.WaitGroup
		pushed int
	)
	sem := make(chan struct{}, pushConcurrency)

	for _, entry := range wanted {
		wg.Add(1)
		go func(e cal.Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := s.push(ctx, e)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				merr = multierror.Append(merr, err)
				return
			}
			pushed++
		}(entry)
	}
	wg.Wait()
	result.Pushed = pushed

	removed, err := s.removeStale(ctx, fromKey, toKey, wanted)
	result.Removed = removed
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	if err := merr.ErrorOrNil(); err != nil {
		s.logger.Error().Err(err).Int("pushed", result.Pushed).Int("removed", result.Removed).Msg("Mirror sync finished with errors")
		return result, err
	}

	s.logger.Info().Int("pushed", result.Pushed).Int("removed", result.Removed).Msg("Mirror sync completed successfully")
	return result, nil
}

func (s *Service) push(ctx context.Context, e cal.Entry) error {
	logger := s.logger.With().Str("entry_id", e.ID).Str("date", e.Date).Logger()

	event, err := s.toEvent(e)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot convert entry to a calendar event")
		return err
	}

	_, err = s.srv.Events.Insert(s.calendarID, event).Context(ctx).Do()
	if isStatus(err, http.StatusConflict) {
		logger.Debug().Str("event_id", event.Id).Msg("Event already mirrored, updating")
		_, err = s.srv.Events.Update(s.calendarID, event.Id, event).Context(ctx).Do()
	}
	if err != nil {
		logger.Error().Err(err).Str("event_id", event.Id).Msg("Failed to push event")
		return fmt.Errorf("failed to push entry %s: %w", e.ID, err)
	}

	if err := s.state.Mark(ctx, e.ID, event.Id, e.Date); err != nil {
		return err
	}
	logger.Debug().Str("event_id", event.Id).Msg("Pushed event")
	return nil
}

func (s *Service) removeStale(ctx context.Context, fromKey, toKey string, wanted []cal.Entry) (int, error) {
	mirrored, err := s.state.Mirrored(ctx, fromKey, toKey)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]bool, len(wanted))
	for _, e := range wanted {
		keep[e.ID] = true
	}

	var merr *multierror.Error
	removed := 0
	for entryID, remoteID := range mirrored {
		if keep[entryID] {
			continue
		}
		err := s.srv.Events.Delete(s.calendarID, remoteID).Context(ctx).Do()
		if err != nil && !isStatus(err, http.StatusNotFound) && !isStatus(err, http.StatusGone) {
			s.logger.Error().Err(err).Str("entry_id", entryID).Str("event_id", remoteID).Msg("Failed to delete stale event")
			merr = multierror.Append(merr, fmt.Errorf("failed to delete stale event %s: %w", remoteID, err))
			continue
		}
		if err := s.state.Forget(ctx, entryID); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		s.logger.Debug().Str("entry_id", entryID).Str("event_id", remoteID).Msg("Removed stale event")
		removed++
	}
	return removed, merr.ErrorOrNil()
}

// toEvent maps an entry onto a Google event. Timed entries without an end
// last one hour; an end before the start falls on the next day.
func (s *Service) toEvent(e cal.Entry) (*calendar.Event, error) {
	day, ok := dates.ParseDate(e.Date)
	if !ok {
		return nil, fmt.Errorf("entry %s has an invalid date %q", e.ID, e.Date)
	}

	event := &calendar.Event{
		Id:          RemoteID(e.ID),
		Summary:     e.Title,
		Location:    e.Venue,
		Description: formatEventDescription(e),
		Status:      "confirmed",
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"app":     constants.AppIdentifier,
				"entryId": e.ID,
			},
		},
	}
	if e.Kind == cal.KindOptioned {
		event.Status = "tentative"
		event.Transparency = "transparent"
	}

	start, end, timed := e.Minutes()
	if !timed {
		event.Start = &calendar.EventDateTime{Date: dates.FormatISO(day)}
		event.End = &calendar.EventDateTime{Date: dates.FormatISO(dates.AddDays(day, 1))}
		return event, nil
	}

	event.Start = &calendar.EventDateTime{DateTime: localTime(day, start), TimeZone: s.timezone}
	event.End = &calendar.EventDateTime{DateTime: localTime(day, end), TimeZone: s.timezone}
	return event, nil
}

func localTime(day time.Time, minutes int) string {
	return day.Add(time.Duration(minutes) * time.Minute).Format("2006-01-02T15:04:05")
}

// formatEventDescription formats the event description string.
func formatEventDescription(e cal.Entry) string {
	var lines []string
	if e.GroupRef != "" {
		lines = append(lines, "Group: "+e.GroupRef)
	}
	if e.ContactResponsible != "" {
		lines = append(lines, "Contact: "+e.ContactResponsible)
	}
	if e.Notes != "" {
		lines = append(lines, e.Notes)
	}
	lines = append(lines, fmt.Sprintf("[%s]", constants.AppIdentifier))
	return strings.Join(lines, "\n")
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
