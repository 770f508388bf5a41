package handlers

// Error Codes
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidView      = "invalid_view"
	ErrCodeInvalidDate      = "invalid_date"
	ErrCodeInvalidRange     = "invalid_range"
	ErrCodeInvalidAction    = "invalid_action"
	ErrCodeInvalidRecord    = "invalid_record"
	ErrCodeInvalidRole      = "invalid_role"
	ErrCodeRoleNotAllowed   = "role_not_allowed"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeLoadFailed       = "load_failed"
	ErrCodeSaveFailed       = "save_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeExportFailed     = "export_failed"
	ErrCodeMirrorDisabled   = "mirror_disabled"
	ErrCodeSyncInProgress   = "sync_in_progress"
	ErrCodeSyncFailed       = "sync_failed"
	ErrCodeCalendarFetchErr = "calendar_fetch_error"
	ErrCodeUnknown          = "unknown_error"
)

// ErrorMessages maps error codes to user-friendly messages
var ErrorMessages = map[string]string{
	ErrCodeInvalidRequest:   "The request body could not be read.",
	ErrCodeInvalidView:      "View must be MONTH, WEEK or DAY.",
	ErrCodeInvalidDate:      "Dates must use the YYYY-MM-DD format.",
	ErrCodeInvalidRange:     "The requested date range is invalid.",
	ErrCodeInvalidAction:    "Action must be PREVIOUS, NEXT or TODAY.",
	ErrCodeInvalidRecord:    "The record is missing required fields.",
	ErrCodeInvalidRole:      "Unknown user role.",
	ErrCodeRoleNotAllowed:   "This role may not use the calendar.",
	ErrCodeForbidden:        "Only admins can perform this action.",
	ErrCodeNotFound:         "The requested record does not exist.",
	ErrCodeLoadFailed:       "Failed to load calendar records.",
	ErrCodeSaveFailed:       "Failed to save the record.",
	ErrCodeDeleteFailed:     "Failed to delete the record.",
	ErrCodeExportFailed:     "Failed to export the calendar.",
	ErrCodeMirrorDisabled:   "The Google Calendar mirror is not enabled.",
	ErrCodeSyncInProgress:   "A sync is already running. Please try again shortly.",
	ErrCodeSyncFailed:       "Failed to sync with Google Calendar. Please try again.",
	ErrCodeCalendarFetchErr: "Failed to fetch your Google calendars.",
	ErrCodeUnknown:          "An unknown error occurred.",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return ErrorMessages[ErrCodeUnknown]
}
