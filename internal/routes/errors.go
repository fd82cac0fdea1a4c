package routes

import (
	"errors"
	"net/http"

	"studyhall/internal/checkin"
	"studyhall/internal/habit"
	"studyhall/internal/token"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

// Routes-specific errors (that don't conflict with other packages)
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")
	ErrNotOwner  = errors.New("resource belongs to another user")

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Resource errors
	ErrNotFound        = errors.New("not found")
	ErrFocusRunning    = errors.New("a focus session is already running")
	ErrFocusNotRunning = errors.New("no focus session is running")

	// Internal errors
	ErrInternalServer     = errors.New("internal server error")
	ErrDatabaseError      = errors.New("database error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:           http.StatusBadRequest,
	ErrMissingParameter:         http.StatusBadRequest,
	ErrInvalidParameter:         http.StatusBadRequest,
	checkin.ErrMalformedCode:    http.StatusBadRequest,
	checkin.ErrPasscodeRequired: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrInvalidCredentials:  http.StatusUnauthorized,
	token.ErrNonValidToken: http.StatusUnauthorized,
	token.ErrInvalidNonce:  http.StatusUnauthorized,

	// 403 Forbidden
	ErrForbidden:                http.StatusForbidden,
	checkin.ErrSessionNotOpen:   http.StatusForbidden,
	checkin.ErrPasscodeMismatch: http.StatusForbidden,
	checkin.ErrNotEnrolled:      http.StatusForbidden,

	// 404 Not Found
	ErrUserNotFound:           http.StatusNotFound,
	ErrNotFound:               http.StatusNotFound,
	ErrNotOwner:               http.StatusNotFound,
	checkin.ErrSessionMissing: http.StatusNotFound,
	habit.ErrHabitMissing:     http.StatusNotFound,

	// 409 Conflict
	checkin.ErrWrongSession: http.StatusConflict,
	habit.ErrHabitArchived:  http.StatusConflict,
	ErrFocusRunning:         http.StatusConflict,
	ErrFocusNotRunning:      http.StatusConflict,

	// 410 Gone
	checkin.ErrSessionClosed: http.StatusGone,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	ErrDatabaseError:  http.StatusInternalServerError,
	checkin.ErrStore:  http.StatusInternalServerError,

	// 503 Service Unavailable
	ErrServiceUnavailable: http.StatusServiceUnavailable,
}

// errorInfoMap maps errors to user-friendly messages and optional stop codes
var errorInfoMap = map[error]ErrorInfo{
	// Authentication
	ErrUnauthorized: {
		Message:   "Authentication required",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	ErrInvalidCredentials: {
		Message:   "Invalid credentials provided",
		StopCodes: []string{"AUTH_INVALID_CREDENTIALS"},
	},
	token.ErrNonValidToken: {
		Message:   "Invalid or expired authentication token",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	token.ErrInvalidNonce: {
		Message:   "Invalid or reused token",
		StopCodes: []string{"AUTH_INVALID_NONCE"},
	},

	// Authorization
	ErrForbidden: {
		Message:   "Access denied",
		StopCodes: []string{"FORBIDDEN"},
	},

	// Check-in
	checkin.ErrMalformedCode: {
		Message:   "That code is not a valid check-in code",
		StopCodes: []string{"MALFORMED_CODE"},
	},
	checkin.ErrWrongSession: {
		Message:   "This code belongs to a different session",
		StopCodes: []string{"WRONG_SESSION"},
	},
	checkin.ErrSessionMissing: {
		Message:   "Session not found",
		StopCodes: []string{"SESSION_NOT_FOUND"},
	},
	checkin.ErrSessionNotOpen: {
		Message:   "This session has not opened yet",
		StopCodes: []string{"SESSION_NOT_OPEN"},
	},
	checkin.ErrSessionClosed: {
		Message:   "This session is closed",
		StopCodes: []string{"SESSION_CLOSED"},
	},
	checkin.ErrPasscodeRequired: {
		Message:   "This session requires a passcode",
		StopCodes: []string{"PASSCODE_REQUIRED"},
	},
	checkin.ErrPasscodeMismatch: {
		Message:   "The passcode does not match",
		StopCodes: []string{"PASSCODE_MISMATCH"},
	},
	checkin.ErrNotEnrolled: {
		Message:   "You are not enrolled in this course",
		StopCodes: []string{"NOT_ENROLLED"},
	},

	// Habits
	habit.ErrHabitMissing: {
		Message:   "Habit not found",
		StopCodes: []string{"HABIT_NOT_FOUND"},
	},
	habit.ErrHabitArchived: {
		Message:   "This habit is archived",
		StopCodes: []string{"HABIT_ARCHIVED"},
	},

	// Focus
	ErrFocusRunning: {
		Message:   "A focus session is already running",
		StopCodes: []string{"FOCUS_RUNNING"},
	},
	ErrFocusNotRunning: {
		Message:   "No focus session is running",
		StopCodes: []string{"FOCUS_NOT_RUNNING"},
	},

	// Validation
	ErrInvalidRequest: {
		Message:   "Invalid request format",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrMissingParameter: {
		Message:   "Required parameter is missing",
		StopCodes: []string{"MISSING_PARAMETER"},
	},
	ErrInvalidParameter: {
		Message:   "Invalid parameter value",
		StopCodes: []string{"INVALID_PARAMETER"},
	},
	ErrNotFound: {
		Message:   "Not found",
		StopCodes: []string{"NOT_FOUND"},
	},
	ErrNotOwner: {
		Message:   "Not found",
		StopCodes: []string{"NOT_FOUND"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "An internal error occurred",
	},
	ErrDatabaseError: {
		Message: "Database operation failed",
	},
	checkin.ErrStore: {
		Message: "Attendance could not be recorded",
	},
	ErrServiceUnavailable: {
		Message: "Service is temporarily unavailable",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	// Check if it's already an HTTPError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	// Check direct match
	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	// Check if error wraps a known error
	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	// Default to 500 Internal Server Error
	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	// Check if it's an HTTPError with custom info
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	// Check direct match
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Check if error wraps a known error
	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return info
		}
	}

	// For unknown errors, return a generic message for 5xx, specific for others
	status := GetErrorStatus(err)
	if status >= 500 {
		return ErrorInfo{Message: "An internal error occurred"}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}

// GetErrorStopCodes returns stop codes for an error
func GetErrorStopCodes(err error) []string {
	return GetErrorInfo(err).StopCodes
}
