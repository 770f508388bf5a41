// Package records defines the canonical event and availability records
// exchanged with the API layer, and decodes the historical wire shapes
// into them.
package records

import (
	"errors"
	"strings"
)

// ErrInvalidRecord marks a record that matches neither wire convention.
var ErrInvalidRecord = errors.New("invalid record")

// Event is the canonical event record.
type Event struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Date               string   `json:"date,omitempty"`
	StartTime          string   `json:"start_time,omitempty"`
	EndTime            string   `json:"end_time,omitempty"`
	Venue              string   `json:"venue,omitempty"`
	GroupID            string   `json:"group_id,omitempty"`
	GroupName          string   `json:"group_name,omitempty"`
	Fee                *float64 `json:"fee,omitempty"`
	Status             string   `json:"status,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	ContactResponsible string   `json:"contact_responsible,omitempty"`
	Recurrence         string   `json:"recurrence,omitempty"`
}

// AvailabilityType is the kind of an availability marker.
type AvailabilityType string

const (
	AvailabilityBusy      AvailabilityType = "BUSY"
	AvailabilityAvailable AvailabilityType = "AVAILABLE"
)

// ParseAvailabilityType accepts the type case-insensitively.
func ParseAvailabilityType(s string) (AvailabilityType, bool) {
	switch AvailabilityType(strings.ToUpper(strings.TrimSpace(s))) {
	case AvailabilityBusy:
		return AvailabilityBusy, true
	case AvailabilityAvailable:
		return AvailabilityAvailable, true
	}
	return "", false
}

// Availability is the canonical availability record.
type Availability struct {
	ID        string           `json:"id"`
	Date      string           `json:"date"`
	Type      AvailabilityType `json:"type"`
	GroupID   string           `json:"group_id,omitempty"`
	GroupName string           `json:"group_name,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	UserName  string           `json:"user_name,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}
