package gcal

import (
	"context"
	"fmt"
)

// CalendarInfo describes a calendar the mirror could target.
type CalendarInfo struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Primary  bool   `json:"primary"`
	Selected bool   `json:"selected"`
}

// Calendars fetches the writable calendars of the authenticated account
func (s *Service) Calendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := s.srv.CalendarList.List().MinAccessRole("writer").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendars: %w", err)
	}

	out := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, CalendarInfo{
			ID:       item.Id,
			Summary:  item.Summary,
			Primary:  item.Primary,
			Selected: item.Id == s.calendarID || (item.Primary && s.calendarID == "primary"),
		})
	}
	s.logger.Debug().Int("count", len(out)).Msg("Fetched calendar list")
	return out, nil
}

// CalendarID returns the calendar the mirror writes to
func (s *Service) CalendarID() string {
	return s.calendarID
}
