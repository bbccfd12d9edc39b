package operations

import (
	"errors"

	"institute/portal/internal/model"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindConfirmationRequired
	KindInvalidTransition
	KindNotFound
	KindForbidden
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindConfirmationRequired:
		return "confirmation_required"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

const (
	ErrMissingFields      = "missing_fields"
	ErrInvalidID          = "invalid_id"
	ErrInvalidDay         = "invalid_day_of_week"
	ErrInvalidTimeRange   = "invalid_time_range"
	ErrSessionConflict    = "session_conflict"
	ErrReferenceNotFound  = "reference_not_found"
	ErrNotAssigned        = "teacher_not_assigned"
	ErrFutureDate         = "future_date"
	ErrInvalidStatus      = "invalid_status"
	ErrDuplicateStudent   = "duplicate_student"
	ErrStudentNotInRoster = "student_not_in_roster"
	ErrOverwriteRequired  = "overwrite_required"
	ErrRequestNotFound    = "request_not_found"
	ErrCourseNotFound     = "course_not_found"
	ErrRequestNotPending  = "request_not_pending"
	ErrRemarksRequired    = "remarks_required"
	ErrInvalidAmount      = "invalid_amount"
	ErrDuplicateRequest   = "duplicate_request"
	ErrNotificationFound  = "notification_not_found"
	ErrForbidden          = "forbidden"
	ErrServerError        = "server_error"
)

type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Error is the single error type returned by every operation. Code is a
// stable snake_case identifier, Message is safe to show to a user.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Fields    []FieldError
	Conflicts []model.ScheduledSession
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	opErr, ok := AsError(err)
	return ok && opErr.Kind == kind
}

func validationError(code, message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Fields: fields}
}

func persistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Code: ErrServerError, Message: "something went wrong, please try again", Err: err}
}
