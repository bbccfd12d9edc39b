package operations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"institute/portal/internal/model"
)

type RosterEntry struct {
	StudentID string                 `json:"student_id"`
	Name      string                 `json:"name"`
	RollNo    string                 `json:"roll_no"`
	Present   bool                   `json:"present"`
	Status    model.AttendanceStatus `json:"status"`
	Remarks   string                 `json:"remarks,omitempty"`
}

type ResolvedSession struct {
	ClassID   string        `json:"class_id"`
	SubjectID string        `json:"subject_id"`
	Date      string        `json:"date"`
	Existing  bool          `json:"existing"`
	Students  []RosterEntry `json:"students"`
}

type Mark struct {
	StudentID string
	Status    model.AttendanceStatus
	Remarks   string
}

type CommitInput struct {
	TeacherID string
	ClassID   string
	SubjectID string
	Date      time.Time
	Marks     []Mark
	Overwrite bool
}

type CommitResult struct {
	Saved    int `json:"saved"`
	Replaced int `json:"replaced"`
	Notified int `json:"notified"`
}

func (s *Service) authorizeSession(ctx context.Context, teacherID, classID, subjectID string) error {
	if err := requireUUIDs("teacher_id", teacherID, "class_id", classID, "subject_id", subjectID); err != nil {
		return err
	}
	assigned, err := s.store.IsTeacherAssigned(ctx, teacherID, classID, subjectID)
	if err != nil {
		return persistenceError(err)
	}
	if !assigned {
		return &Error{Kind: KindForbidden, Code: ErrNotAssigned, Message: "you are not assigned to this class and subject"}
	}
	return nil
}

// ResolveSession builds the marking sheet for one session: the class roster
// with any persisted status merged in. Students without a record default to
// present.
func (s *Service) ResolveSession(ctx context.Context, teacherID, classID, subjectID string, date time.Time) (ResolvedSession, error) {
	if date.IsZero() {
		return ResolvedSession{}, validationError(ErrMissingFields, "date is required", FieldError{Field: "date", Code: "required"})
	}
	if err := s.authorizeSession(ctx, teacherID, classID, subjectID); err != nil {
		return ResolvedSession{}, err
	}

	roster, err := s.store.ListRoster(ctx, classID)
	if err != nil {
		return ResolvedSession{}, persistenceError(err)
	}
	key := model.SessionKey{ClassID: classID, SubjectID: subjectID, Date: date}
	records, err := s.store.ListAttendance(ctx, key)
	if err != nil {
		return ResolvedSession{}, persistenceError(err)
	}

	byStudent := make(map[string]model.AttendanceRecord, len(records))
	for _, record := range records {
		byStudent[record.StudentID] = record
	}

	entries := make([]RosterEntry, 0, len(roster))
	for _, student := range roster {
		entry := RosterEntry{
			StudentID: student.ID,
			Name:      student.Name,
			RollNo:    student.RollNo,
			Present:   true,
			Status:    model.AttendancePresent,
		}
		if record, ok := byStudent[student.ID]; ok {
			entry.Status = record.Status
			entry.Present = record.Status != model.AttendanceAbsent
			entry.Remarks = record.Remarks
		}
		entries = append(entries, entry)
	}

	return ResolvedSession{
		ClassID:   classID,
		SubjectID: subjectID,
		Date:      model.FormatDate(date),
		Existing:  len(records) > 0,
		Students:  entries,
	}, nil
}

// CommitSession replaces the attendance of one session. Existing rows are
// only replaced when in.Overwrite is set.
func (s *Service) CommitSession(ctx context.Context, in CommitInput) (CommitResult, error) {
	if in.Date.IsZero() {
		return CommitResult{}, validationError(ErrMissingFields, "date is required", FieldError{Field: "date", Code: "required"})
	}
	if in.Date.After(s.Today()) {
		return CommitResult{}, validationError(ErrFutureDate, "attendance cannot be recorded for a future date",
			FieldError{Field: "date", Code: "future"})
	}
	if len(in.Marks) == 0 {
		return CommitResult{}, validationError(ErrMissingFields, "at least one attendance record is required",
			FieldError{Field: "records", Code: "required"})
	}
	if err := s.authorizeSession(ctx, in.TeacherID, in.ClassID, in.SubjectID); err != nil {
		return CommitResult{}, err
	}

	roster, err := s.store.ListRoster(ctx, in.ClassID)
	if err != nil {
		return CommitResult{}, persistenceError(err)
	}
	students := make(map[string]model.Student, len(roster))
	for _, student := range roster {
		students[student.ID] = student
	}

	key := model.SessionKey{ClassID: in.ClassID, SubjectID: in.SubjectID, Date: in.Date}
	records := make([]model.AttendanceRecord, 0, len(in.Marks))
	seen := make(map[string]struct{}, len(in.Marks))
	var fields []FieldError
	for i, mark := range in.Marks {
		field := fmt.Sprintf("records[%d]", i)
		if _, ok := students[mark.StudentID]; !ok {
			fields = append(fields, FieldError{Field: field + ".student_id", Code: ErrStudentNotInRoster})
			continue
		}
		if _, dup := seen[mark.StudentID]; dup {
			fields = append(fields, FieldError{Field: field + ".student_id", Code: ErrDuplicateStudent})
			continue
		}
		if !mark.Status.Valid() {
			fields = append(fields, FieldError{Field: field + ".status", Code: ErrInvalidStatus})
			continue
		}
		seen[mark.StudentID] = struct{}{}
		records = append(records, model.AttendanceRecord{
			ID:        uuid.NewString(),
			TeacherID: in.TeacherID,
			StudentID: mark.StudentID,
			ClassID:   in.ClassID,
			SubjectID: in.SubjectID,
			Date:      in.Date,
			Status:    mark.Status,
			Remarks:   strings.TrimSpace(mark.Remarks),
		})
	}
	if len(fields) > 0 {
		return CommitResult{}, validationError(ErrInvalidStatus, "some attendance records are invalid", fields...)
	}

	var notes []model.Notification
	for _, record := range records {
		if record.Status != model.AttendanceAbsent {
			continue
		}
		notes = append(notes, s.newNotification(model.RoleStudent, record.StudentID,
			"Marked absent",
			fmt.Sprintf("You were marked absent on %s.", model.FormatDate(in.Date))))
	}

	replaced := 0
	err = s.store.ReplaceAttendance(ctx, key, records, func(existing []model.AttendanceRecord) error {
		if len(existing) > 0 && !in.Overwrite {
			return &Error{
				Kind:    KindConfirmationRequired,
				Code:    ErrOverwriteRequired,
				Message: fmt.Sprintf("attendance for %s already exists; confirm to overwrite it", model.FormatDate(in.Date)),
			}
		}
		replaced = len(existing)
		return nil
	}, notes)
	if err != nil {
		if opErr, ok := AsError(err); ok {
			return CommitResult{}, opErr
		}
		return CommitResult{}, persistenceError(err)
	}

	s.publish(ctx, notes...)
	return CommitResult{Saved: len(records), Replaced: replaced, Notified: len(notes)}, nil
}

type ProgressSummary struct {
	StudentID string  `json:"student_id"`
	Present   int     `json:"present"`
	Absent    int     `json:"absent"`
	Late      int     `json:"late"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// StudentProgress summarizes a student's attendance across all sessions.
// Late counts as attended.
func (s *Service) StudentProgress(ctx context.Context, studentID string) (ProgressSummary, error) {
	if err := requireUUIDs("student_id", studentID); err != nil {
		return ProgressSummary{}, err
	}
	counts, err := s.store.CountStudentAttendance(ctx, studentID)
	if err != nil {
		return ProgressSummary{}, persistenceError(err)
	}
	summary := ProgressSummary{
		StudentID: studentID,
		Present:   counts.Present,
		Absent:    counts.Absent,
		Late:      counts.Late,
		Total:     counts.Total(),
	}
	if summary.Total > 0 {
		summary.Percent = float64(counts.Present+counts.Late) * 100 / float64(summary.Total)
	}
	return summary, nil
}
