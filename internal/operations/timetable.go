package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"institute/portal/internal/model"
)

type SessionInput struct {
	ClassID   string
	SubjectID string
	TeacherID string
	Day       model.Weekday
	Start     model.ClockTime
	End       model.ClockTime
}

func (in SessionInput) Range() model.TimeRange {
	return model.TimeRange{Start: in.Start, End: in.End}
}

// conflictsWith returns the sessions of existing whose interval intersects
// candidate.
func conflictsWith(existing []model.ScheduledSession, candidate model.TimeRange) []model.ScheduledSession {
	var clashes []model.ScheduledSession
	for _, session := range existing {
		if candidate.Overlaps(session.Range()) {
			clashes = append(clashes, session)
		}
	}
	return clashes
}

func conflictError(day model.Weekday, clashes []model.ScheduledSession) *Error {
	spans := make([]string, 0, len(clashes))
	for _, session := range clashes {
		spans = append(spans, session.Start.String()+"-"+session.End.String())
	}
	return &Error{
		Kind:      KindConflict,
		Code:      ErrSessionConflict,
		Message:   fmt.Sprintf("class already has a session on %s at %s", day, strings.Join(spans, ", ")),
		Conflicts: clashes,
	}
}

func validateSlot(classID string, day model.Weekday, r model.TimeRange) *Error {
	if err := requireUUIDs("class_id", classID); err != nil {
		return err
	}
	if !day.Valid() {
		return validationError(ErrInvalidDay, "day of week must be between 1 (Monday) and 7 (Sunday)",
			FieldError{Field: "day_of_week", Code: "range"})
	}
	if !r.Valid() {
		return validationError(ErrInvalidTimeRange, "end time must be after start time",
			FieldError{Field: "end_time", Code: "gtfield"})
	}
	return nil
}

// Conflicts lists the sessions of classID on day that intersect
// [start, end). An empty result means the slot is free.
func (s *Service) Conflicts(ctx context.Context, classID string, day model.Weekday, start, end model.ClockTime) ([]model.ScheduledSession, error) {
	candidate := model.TimeRange{Start: start, End: end}
	if err := validateSlot(classID, day, candidate); err != nil {
		return nil, err
	}
	existing, err := s.store.ListSessions(ctx, classID, day)
	if err != nil {
		return nil, persistenceError(err)
	}
	return conflictsWith(existing, candidate), nil
}

func (s *Service) HasConflict(ctx context.Context, classID string, day model.Weekday, start, end model.ClockTime) (bool, error) {
	clashes, err := s.Conflicts(ctx, classID, day, start, end)
	if err != nil {
		return false, err
	}
	return len(clashes) > 0, nil
}

// CreateSession persists a weekly session once the slot is known to be
// free. The overlap check runs inside the store's write lock for the
// class and day.
func (s *Service) CreateSession(ctx context.Context, in SessionInput) (model.ScheduledSession, error) {
	if err := requireUUIDs("class_id", in.ClassID, "subject_id", in.SubjectID, "teacher_id", in.TeacherID); err != nil {
		return model.ScheduledSession{}, err
	}
	if err := validateSlot(in.ClassID, in.Day, in.Range()); err != nil {
		return model.ScheduledSession{}, err
	}

	session := model.ScheduledSession{
		ID:        uuid.NewString(),
		ClassID:   in.ClassID,
		SubjectID: in.SubjectID,
		TeacherID: in.TeacherID,
		Day:       in.Day,
		Start:     in.Start,
		End:       in.End,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.store.InsertSession(ctx, session, func(existing []model.ScheduledSession) error {
		if clashes := conflictsWith(existing, session.Range()); len(clashes) > 0 {
			return conflictError(session.Day, clashes)
		}
		return nil
	})
	if err != nil {
		if opErr, ok := AsError(err); ok {
			return model.ScheduledSession{}, opErr
		}
		if errors.Is(err, model.ErrNotFound) {
			return model.ScheduledSession{}, &Error{Kind: KindNotFound, Code: ErrReferenceNotFound,
				Message: "class, subject or teacher does not exist", Err: err}
		}
		return model.ScheduledSession{}, persistenceError(err)
	}
	return created, nil
}

func (s *Service) ListSessions(ctx context.Context, classID string, day model.Weekday) ([]model.ScheduledSession, error) {
	if err := requireUUIDs("class_id", classID); err != nil {
		return nil, err
	}
	if day != 0 && !day.Valid() {
		return nil, validationError(ErrInvalidDay, "day of week must be between 1 (Monday) and 7 (Sunday)",
			FieldError{Field: "day_of_week", Code: "range"})
	}
	sessions, err := s.store.ListSessions(ctx, classID, day)
	if err != nil {
		return nil, persistenceError(err)
	}
	return sessions, nil
}
