package model

import (
	"errors"
	"time"
)

// Store contract errors. Stores return these (possibly wrapped) so the
// rule layer can classify failures without knowing the backend.
var (
	ErrNotFound   = errors.New("not found")
	ErrNotPending = errors.New("request is not pending")
	ErrDuplicate  = errors.New("duplicate")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type ScheduledSession struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	Day       Weekday   `json:"day_of_week"`
	Start     ClockTime `json:"start_time"`
	End       ClockTime `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

func (s ScheduledSession) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

type Student struct {
	ID      string `json:"id"`
	ClassID string `json:"class_id"`
	Name    string `json:"name"`
	RollNo  string `json:"roll_no"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	default:
		return false
	}
}

// SessionKey identifies one attendance session: a class/subject pair on a
// calendar date. Records are unique per (student, SessionKey).
type SessionKey struct {
	ClassID   string
	SubjectID string
	Date      time.Time
}

type AttendanceRecord struct {
	ID        string           `json:"id"`
	TeacherID string           `json:"teacher_id"`
	StudentID string           `json:"student_id"`
	ClassID   string           `json:"class_id"`
	SubjectID string           `json:"subject_id"`
	Date      time.Time        `json:"date"`
	Status    AttendanceStatus `json:"status"`
	Remarks   string           `json:"remarks,omitempty"`
}

type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (c AttendanceCounts) Total() int {
	return c.Present + c.Absent + c.Late
}

type RequestKind string

const (
	RequestEnrollment RequestKind = "enrollment"
	RequestPayment    RequestKind = "payment"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusCompleted RequestStatus = "completed"
	StatusRejected  RequestStatus = "rejected"
)

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusCompleted || s == StatusRejected
}

// Request is either an enrollment request or a payment transaction; the
// kind decides which of CourseID or Amount/Reference are meaningful.
type Request struct {
	ID         string        `json:"id"`
	Kind       RequestKind   `json:"kind"`
	StudentID  string        `json:"student_id"`
	CourseID   string        `json:"course_id,omitempty"`
	Amount     int64         `json:"amount,omitempty"`
	Reference  string        `json:"reference,omitempty"`
	Status     RequestStatus `json:"status"`
	Remarks    string        `json:"remarks,omitempty"`
	ReviewedBy string        `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
}

// Transition moves a pending request to a terminal status.
type Transition struct {
	Kind      RequestKind
	RequestID string
	ActorID   string
	To        RequestStatus
	Remarks   string
	At        time.Time
}

type Notification struct {
	ID            string    `json:"id"`
	RecipientRole Role      `json:"recipient_role"`
	RecipientID   string    `json:"recipient_id,omitempty"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}
