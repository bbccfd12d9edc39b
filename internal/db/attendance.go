package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"institute/portal/internal/model"
)

func (s *Store) IsTeacherAssigned(ctx context.Context, teacherID, classID, subjectID string) (bool, error) {
	var assigned bool
	err := s.pool.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM teacher_assignments
      WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3
    )
  `, pgUUID(teacherID), pgUUID(classID), pgUUID(subjectID)).Scan(&assigned)
	return assigned, errors.Wrap(err, "teacher assignment")
}

func (s *Store) ListRoster(ctx context.Context, classID string) ([]model.Student, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT id, class_id, name, roll_no
    FROM students
    WHERE class_id = $1
    ORDER BY roll_no, name
  `, pgUUID(classID))
	if err != nil {
		return nil, errors.Wrap(err, "list roster")
	}
	defer rows.Close()

	students := make([]model.Student, 0)
	for rows.Next() {
		var (
			student     model.Student
			id, classID pgtype.UUID
		)
		if err := rows.Scan(&id, &classID, &student.Name, &student.RollNo); err != nil {
			return nil, errors.Wrap(err, "scan student")
		}
		student.ID = uuidString(id)
		student.ClassID = uuidString(classID)
		students = append(students, student)
	}
	return students, errors.Wrap(rows.Err(), "list roster")
}

func (s *Store) ListAttendance(ctx context.Context, key model.SessionKey) ([]model.AttendanceRecord, error) {
	return listAttendance(ctx, s.pool, key)
}

func listAttendance(ctx context.Context, q querier, key model.SessionKey) ([]model.AttendanceRecord, error) {
	rows, err := q.Query(ctx, `
    SELECT id, teacher_id, student_id, class_id, subject_id, date, status, remarks
    FROM attendance_records
    WHERE class_id = $1 AND subject_id = $2 AND date = $3
    ORDER BY student_id
  `, pgUUID(key.ClassID), pgUUID(key.SubjectID), pgDate(key.Date))
	if err != nil {
		return nil, errors.Wrap(err, "list attendance")
	}
	defer rows.Close()

	records := make([]model.AttendanceRecord, 0)
	for rows.Next() {
		var (
			record                                    model.AttendanceRecord
			id, teacherID, studentID, classID, subjID pgtype.UUID
			date                                      pgtype.Date
			status                                    string
		)
		if err := rows.Scan(&id, &teacherID, &studentID, &classID, &subjID, &date, &status, &record.Remarks); err != nil {
			return nil, errors.Wrap(err, "scan attendance")
		}
		record.ID = uuidString(id)
		record.TeacherID = uuidString(teacherID)
		record.StudentID = uuidString(studentID)
		record.ClassID = uuidString(classID)
		record.SubjectID = uuidString(subjID)
		record.Date = date.Time
		record.Status = model.AttendanceStatus(status)
		records = append(records, record)
	}
	return records, errors.Wrap(rows.Err(), "list attendance")
}

// ReplaceAttendance upserts records on the (student, class, subject, date)
// key and removes the session's rows for students outside the new set, all
// in one transaction under the session's advisory lock.
func (s *Store) ReplaceAttendance(ctx context.Context, key model.SessionKey, records []model.AttendanceRecord, check func([]model.AttendanceRecord) error, notes []model.Notification) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		lockKey := fmt.Sprintf("attendance:%s:%s:%s", key.ClassID, key.SubjectID, model.FormatDate(key.Date))
		if err := lock(ctx, tx, lockKey); err != nil {
			return err
		}
		existing, err := listAttendance(ctx, tx, key)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}

		batch := &pgx.Batch{}
		studentIDs := make([]string, 0, len(records))
		for _, record := range records {
			studentIDs = append(studentIDs, record.StudentID)
			batch.Queue(`
        INSERT INTO attendance_records (id, teacher_id, student_id, class_id, subject_id, date, status, remarks)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (student_id, class_id, subject_id, date)
        DO UPDATE SET teacher_id = EXCLUDED.teacher_id, status = EXCLUDED.status, remarks = EXCLUDED.remarks, updated_at = now()
      `, pgUUID(record.ID), pgUUID(record.TeacherID), pgUUID(record.StudentID), pgUUID(record.ClassID),
				pgUUID(record.SubjectID), pgDate(record.Date), string(record.Status), record.Remarks)
		}
		batch.Queue(`
      DELETE FROM attendance_records
      WHERE class_id = $1 AND subject_id = $2 AND date = $3 AND NOT (student_id = ANY($4))
    `, pgUUID(key.ClassID), pgUUID(key.SubjectID), pgDate(key.Date), pgUUIDs(studentIDs))
		queueNotifications(batch, notes)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return classify(err, "replace attendance")
		}
		return nil
	})
}

func (s *Store) CountStudentAttendance(ctx context.Context, studentID string) (model.AttendanceCounts, error) {
	var counts model.AttendanceCounts
	err := s.pool.QueryRow(ctx, `
    SELECT
      count(*) FILTER (WHERE status = 'present'),
      count(*) FILTER (WHERE status = 'absent'),
      count(*) FILTER (WHERE status = 'late')
    FROM attendance_records
    WHERE student_id = $1
  `, pgUUID(studentID)).Scan(&counts.Present, &counts.Absent, &counts.Late)
	return counts, errors.Wrap(err, "count attendance")
}
