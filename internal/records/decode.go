package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if strings.TrimSpace(string(s)) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return fmt.Errorf("fee %q is not a number", string(s))
	}
	f.value = &v
	return nil
}

// named accepts either a bare string or an object carrying a name.
type named struct {
	ID   flexString
	Name string
}

func (n *named) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &n.Name)
	}
	var obj struct {
		ID   flexString `json:"id"`
		Name string     `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	n.ID, n.Name = obj.ID, obj.Name
	return nil
}

// wireEvent is the union of the snake_case and camelCase event shapes.
type wireEvent struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`

	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	StartTimeCamel string `json:"startTime"`
	Time           string `json:"time"`
	EndTime        string `json:"end_time"`
	EndTimeCamel   string `json:"endTime"`

	VenueName string `json:"venue_name"`
	Location  string `json:"location"`
	Venue     named  `json:"venue"`

	GroupID        flexString `json:"group_id"`
	GroupIDCamel   flexString `json:"groupId"`
	GroupName      string     `json:"group_name"`
	GroupNameCamel string     `json:"groupName"`
	Group          named      `json:"group"`

	Fee flexFloat `json:"fee"`

	Status    string `json:"status"`
	EventType string `json:"event_type"`

	Notes       string `json:"notes"`
	Description string `json:"description"`

	ContactResponsible      string `json:"contact_responsible"`
	ContactResponsibleCamel string `json:"contactResponsible"`

	Recurrence string `json:"recurrence"`
	RRule      string `json:"rrule"`
}

// wireAvailability is the union of both availability shapes.
type wireAvailability struct {
	ID   flexString `json:"id"`
	Date string     `json:"date"`
	Type string     `json:"type"`

	GroupID        flexString `json:"group_id"`
	GroupIDCamel   flexString `json:"groupId"`
	GroupName      string     `json:"group_name"`
	GroupNameCamel string     `json:"groupName"`
	Group          named      `json:"group"`

	UserID        flexString `json:"user_id"`
	UserIDCamel   flexString `json:"userId"`
	UserName      string     `json:"user_name"`
	UserNameCamel string     `json:"userName"`
	User          named      `json:"user"`

	Notes string `json:"notes"`
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func invalid(merr *multierror.Error) error {
	if merr == nil || len(merr.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidRecord, merr)
}

// DecodeEvent decodes an event in either naming convention.
func DecodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	ev := Event{
		ID:                 strings.TrimSpace(string(w.ID)),
		Title:              strings.TrimSpace(w.Title),
		Date:               strings.TrimSpace(w.Date),
		StartTime:          first(w.StartTime, w.StartTimeCamel, w.Time),
		EndTime:            first(w.EndTime, w.EndTimeCamel),
		Venue:              first(w.VenueName, w.Location, w.Venue.Name),
		GroupID:            first(string(w.GroupID), string(w.GroupIDCamel), string(w.Group.ID)),
		GroupName:          first(w.GroupName, w.GroupNameCamel, w.Group.Name),
		Fee:                w.Fee.value,
		Status:             strings.ToUpper(first(w.Status, w.EventType)),
		Notes:              first(w.Notes, w.Description),
		ContactResponsible: first(w.ContactResponsible, w.ContactResponsibleCamel),
		Recurrence:         first(w.Recurrence, w.RRule),
	}

	var merr *multierror.Error
	if ev.ID == "" {
		merr = multierror.Append(merr, fmt.Errorf("event has no id"))
	}
	if ev.Title == "" {
		merr = multierror.Append(merr, fmt.Errorf("event %q has no title", ev.ID))
	}
	if err := invalid(merr); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// DecodeAvailability decodes an availability marker in either naming convention.
func DecodeAvailability(raw []byte) (Availability, error) {
	var w wireAvailability
	if err := json.Unmarshal(raw, &w); err != nil {
		return Availability{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	av := Availability{
		ID:        strings.TrimSpace(string(w.ID)),
		Date:      strings.TrimSpace(w.Date),
		GroupID:   first(string(w.GroupID), string(w.GroupIDCamel), string(w.Group.ID)),
		GroupName: first(w.GroupName, w.GroupNameCamel, w.Group.Name),
		UserID:    first(string(w.UserID), string(w.UserIDCamel), string(w.User.ID)),
		UserName:  first(w.UserName, w.UserNameCamel, w.User.Name),
		Notes:     strings.TrimSpace(w.Notes),
	}

	var merr *multierror.Error
	if av.ID == "" {
		merr = multierror.Append(merr, fmt.Errorf("availability has no id"))
	}
	if t, ok := ParseAvailabilityType(w.Type); ok {
		av.Type = t
	} else {
		merr = multierror.Append(merr, fmt.Errorf("availability %q has unknown type %q", av.ID, w.Type))
	}
	if err := invalid(merr); err != nil {
		return Availability{}, err
	}
	return av, nil
}

// DecodeEventList decodes a JSON array of events. Records that fail are
// reported together; the ones that decode are still returned.
func DecodeEventList(raw []byte) ([]Event, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode event list: %w", err)
	}

	events := make([]Event, 0, len(items))
	var merr *multierror.Error
	for i, item := range items {
		ev, err := DecodeEvent(item)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, merr.ErrorOrNil()
}
