// Package inmem is a process-local Store used by tests and by STORE=memory
// deployments. Every method holds a single mutex, so check callbacks run
// under the same exclusion the Postgres store gets from advisory locks.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"institute/portal/internal/model"
)

type assignment struct {
	teacherID string
	classID   string
	subjectID string
}

type enrollmentKey struct {
	studentID string
	courseID  string
}

type Store struct {
	mu sync.RWMutex

	students      map[string]model.Student
	courses       map[string]struct{}
	assignments   map[assignment]struct{}
	sessions      []model.ScheduledSession
	attendance    map[model.SessionKey][]model.AttendanceRecord
	requests      map[string]model.Request
	enrollments   map[enrollmentKey]time.Time
	notifications []model.Notification
}

func New() *Store {
	return &Store{
		students:    make(map[string]model.Student),
		courses:     make(map[string]struct{}),
		assignments: make(map[assignment]struct{}),
		attendance:  make(map[model.SessionKey][]model.AttendanceRecord),
		requests:    make(map[string]model.Request),
		enrollments: make(map[enrollmentKey]time.Time),
	}
}

func (s *Store) AddStudent(student model.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
}

func (s *Store) AddCourse(courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[courseID] = struct{}{}
}

func (s *Store) AssignTeacher(teacherID, classID, subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignment{teacherID, classID, subjectID}] = struct{}{}
}

// Enrolled reports whether an approved enrollment placed the student in
// the course.
func (s *Store) Enrolled(studentID, courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enrollments[enrollmentKey{studentID, courseID}]
	return ok
}

func (s *Store) ListSessions(_ context.Context, classID string, day model.Weekday) ([]model.ScheduledSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionsFor(classID, day), nil
}

func (s *Store) sessionsFor(classID string, day model.Weekday) []model.ScheduledSession {
	out := make([]model.ScheduledSession, 0)
	for _, session := range s.sessions {
		if session.ClassID != classID {
			continue
		}
		if day != 0 && session.Day != day {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func (s *Store) InsertSession(_ context.Context, session model.ScheduledSession, check func([]model.ScheduledSession) error) (model.ScheduledSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		if err := check(s.sessionsFor(session.ClassID, session.Day)); err != nil {
			return model.ScheduledSession{}, err
		}
	}
	s.sessions = append(s.sessions, session)
	return session, nil
}

func (s *Store) IsTeacherAssigned(_ context.Context, teacherID, classID, subjectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assignments[assignment{teacherID, classID, subjectID}]
	return ok, nil
}

func (s *Store) ListRoster(_ context.Context, classID string) ([]model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Student, 0)
	for _, student := range s.students {
		if student.ClassID == classID {
			out = append(out, student)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RollNo != out[j].RollNo {
			return out[i].RollNo < out[j].RollNo
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func sessionKey(key model.SessionKey) model.SessionKey {
	key.Date = time.Date(key.Date.Year(), key.Date.Month(), key.Date.Day(), 0, 0, 0, 0, time.UTC)
	return key
}

func (s *Store) ListAttendance(_ context.Context, key model.SessionKey) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AttendanceRecord(nil), s.attendance[sessionKey(key)]...), nil
}

func (s *Store) ReplaceAttendance(_ context.Context, key model.SessionKey, records []model.AttendanceRecord, check func([]model.AttendanceRecord) error, notes []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key = sessionKey(key)
	existing := append([]model.AttendanceRecord(nil), s.attendance[key]...)
	if check != nil {
		if err := check(existing); err != nil {
			return err
		}
	}
	next := make([]model.AttendanceRecord, len(records))
	copy(next, records)
	if len(next) == 0 {
		delete(s.attendance, key)
	} else {
		s.attendance[key] = next
	}
	s.notifications = append(s.notifications, notes...)
	return nil
}

func (s *Store) CountStudentAttendance(_ context.Context, studentID string) (model.AttendanceCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts model.AttendanceCounts
	for _, records := range s.attendance {
		for _, record := range records {
			if record.StudentID != studentID {
				continue
			}
			switch record.Status {
			case model.AttendancePresent:
				counts.Present++
			case model.AttendanceAbsent:
				counts.Absent++
			case model.AttendanceLate:
				counts.Late++
			}
		}
	}
	return counts, nil
}

func (s *Store) CreateRequest(_ context.Context, req model.Request, note model.Notification) (model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[req.StudentID]; !ok {
		return model.Request{}, model.ErrNotFound
	}
	for _, other := range s.requests {
		if other.Kind != req.Kind {
			continue
		}
		switch req.Kind {
		case model.RequestEnrollment:
			if other.Status == model.StatusPending && other.StudentID == req.StudentID && other.CourseID == req.CourseID {
				return model.Request{}, model.ErrDuplicate
			}
		case model.RequestPayment:
			if other.Reference == req.Reference {
				return model.Request{}, model.ErrDuplicate
			}
		}
	}
	if req.Kind == model.RequestEnrollment {
		if _, ok := s.courses[req.CourseID]; !ok {
			return model.Request{}, model.ErrNotFound
		}
	}
	s.requests[req.ID] = req
	s.notifications = append(s.notifications, note)
	return req, nil
}

func (s *Store) GetRequest(_ context.Context, kind model.RequestKind, id string) (model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok || req.Kind != kind {
		return model.Request{}, model.ErrNotFound
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context, kind model.RequestKind, status model.RequestStatus) ([]model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Request, 0)
	for _, req := range s.requests {
		if req.Kind != kind {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TransitionRequest(_ context.Context, t model.Transition, notify func(model.Request) model.Notification) (model.Request, model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[t.RequestID]
	if !ok || req.Kind != t.Kind {
		return model.Request{}, model.Notification{}, model.ErrNotFound
	}
	if req.Status != model.StatusPending {
		return model.Request{}, model.Notification{}, model.ErrNotPending
	}
	at := t.At
	req.Status = t.To
	req.Remarks = t.Remarks
	req.ReviewedBy = t.ActorID
	req.ReviewedAt = &at
	s.requests[req.ID] = req

	if req.Kind == model.RequestEnrollment && req.Status == model.StatusApproved {
		s.enrollments[enrollmentKey{req.StudentID, req.CourseID}] = at
	}

	var note model.Notification
	if notify != nil {
		note = notify(req)
		s.notifications = append(s.notifications, note)
	}
	return req, note, nil
}

func visibleTo(note model.Notification, role model.Role, recipientID string) bool {
	return note.RecipientRole == role && (note.RecipientID == "" || note.RecipientID == recipientID)
}

func (s *Store) ListNotifications(_ context.Context, role model.Role, recipientID string, limit int) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		note := s.notifications[i]
		if !visibleTo(note, role, recipientID) {
			continue
		}
		out = append(out, note)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string, role model.Role, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id && visibleTo(s.notifications[i], role, recipientID) {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *Store) PurgeNotifications(_ context.Context, readBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	var deleted int64
	for _, note := range s.notifications {
		if note.IsRead && note.CreatedAt.Before(readBefore) {
			deleted++
			continue
		}
		kept = append(kept, note)
	}
	s.notifications = kept
	return deleted, nil
}
