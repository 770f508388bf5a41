// Package constants provides shared constants for the calendariko application
package constants

// AppIdentifier marks events this application writes to external calendars
const AppIdentifier = "Calendariko"

// ICSProductID is the PRODID of exported iCalendar files
const ICSProductID = "-//Calendariko//Band Calendar//EN"

// ICSDomain qualifies exported event UIDs
const ICSDomain = "calendariko"
