package operations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"institute/portal/internal/model"
)

type TimetableStore interface {
	// ListSessions returns the sessions of a class, restricted to day when
	// day is non-zero, ordered by day then start time.
	ListSessions(ctx context.Context, classID string, day model.Weekday) ([]model.ScheduledSession, error)
	// InsertSession serializes writers per (class, day), hands the current
	// sessions of that day to check and inserts only if check returns nil.
	InsertSession(ctx context.Context, session model.ScheduledSession, check func(existing []model.ScheduledSession) error) (model.ScheduledSession, error)
}

type AttendanceStore interface {
	IsTeacherAssigned(ctx context.Context, teacherID, classID, subjectID string) (bool, error)
	ListRoster(ctx context.Context, classID string) ([]model.Student, error)
	ListAttendance(ctx context.Context, key model.SessionKey) ([]model.AttendanceRecord, error)
	// ReplaceAttendance atomically makes records the full set of rows for
	// key and inserts notes. check sees the rows present before the write
	// and aborts it by returning an error.
	ReplaceAttendance(ctx context.Context, key model.SessionKey, records []model.AttendanceRecord, check func(existing []model.AttendanceRecord) error, notes []model.Notification) error
	CountStudentAttendance(ctx context.Context, studentID string) (model.AttendanceCounts, error)
}

type ApprovalStore interface {
	// CreateRequest returns model.ErrDuplicate when an equivalent pending
	// request exists and model.ErrNotFound when a referenced row is missing.
	CreateRequest(ctx context.Context, req model.Request, note model.Notification) (model.Request, error)
	GetRequest(ctx context.Context, kind model.RequestKind, id string) (model.Request, error)
	ListRequests(ctx context.Context, kind model.RequestKind, status model.RequestStatus) ([]model.Request, error)
	// TransitionRequest applies t only while the request is pending and
	// inserts the notification built from the updated request in the same
	// transaction. Returns model.ErrNotFound or model.ErrNotPending.
	TransitionRequest(ctx context.Context, t model.Transition, notify func(model.Request) model.Notification) (model.Request, model.Notification, error)
}

type NotificationStore interface {
	ListNotifications(ctx context.Context, role model.Role, recipientID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, role model.Role, recipientID string) error
	PurgeNotifications(ctx context.Context, readBefore time.Time) (int64, error)
}

type Store interface {
	TimetableStore
	AttendanceStore
	ApprovalStore
	NotificationStore
}

// Publisher pushes committed notifications to real-time listeners.
type Publisher interface {
	Publish(ctx context.Context, note model.Notification) error
}

type Options struct {
	Location  *time.Location
	Now       func() time.Time
	Publisher Publisher
	Logger    *zap.Logger
}

type Service struct {
	store     Store
	publisher Publisher
	location  *time.Location
	now       func() time.Time
	log       *zap.Logger
}

func NewService(store Store, opts Options) *Service {
	svc := &Service{
		store:     store,
		publisher: opts.Publisher,
		location:  opts.Location,
		now:       opts.Now,
		log:       opts.Logger,
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}
	return svc
}

// Today is the current calendar date in the institute time zone.
func (s *Service) Today() time.Time {
	return model.DateOf(s.now(), s.location)
}

func (s *Service) publish(ctx context.Context, notes ...model.Notification) {
	if s.publisher == nil {
		return
	}
	for _, note := range notes {
		if err := s.publisher.Publish(ctx, note); err != nil {
			s.log.Warn("notification publish failed",
				zap.String("notification_id", note.ID),
				zap.String("recipient_role", string(note.RecipientRole)),
				zap.Error(err))
		}
	}
}

func (s *Service) newNotification(role model.Role, recipientID, title, message string) model.Notification {
	return model.Notification{
		ID:            uuid.NewString(),
		RecipientRole: role,
		RecipientID:   recipientID,
		Title:         title,
		Message:       message,
		CreatedAt:     s.now().UTC(),
	}
}

func requireUUID(value, field string) *FieldError {
	if value == "" {
		return &FieldError{Field: field, Code: "required"}
	}
	if _, err := uuid.Parse(value); err != nil {
		return &FieldError{Field: field, Code: "uuid"}
	}
	return nil
}

// requireUUIDs validates every field/value pair and reports all bad fields
// at once.
func requireUUIDs(pairs ...string) *Error {
	var fields []FieldError
	for i := 0; i+1 < len(pairs); i += 2 {
		if fe := requireUUID(pairs[i+1], pairs[i]); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return validationError(ErrInvalidID, "one or more identifiers are missing or malformed", fields...)
}
