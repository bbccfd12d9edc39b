package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"institute/portal/internal/model"
)

const sessionColumns = `id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, created_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) ListSessions(ctx context.Context, classID string, day model.Weekday) ([]model.ScheduledSession, error) {
	return listSessions(ctx, s.pool, classID, day)
}

func listSessions(ctx context.Context, q querier, classID string, day model.Weekday) ([]model.ScheduledSession, error) {
	rows, err := q.Query(ctx, `
    SELECT `+sessionColumns+`
    FROM scheduled_sessions
    WHERE class_id = $1 AND ($2 = 0 OR day_of_week = $2)
    ORDER BY day_of_week, start_time
  `, pgUUID(classID), int16(day))
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer rows.Close()

	sessions := make([]model.ScheduledSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, errors.Wrap(rows.Err(), "list sessions")
}

func scanSession(row pgx.Row) (model.ScheduledSession, error) {
	var (
		session                       model.ScheduledSession
		id, classID, subject, teacher pgtype.UUID
		day                           int16
		start, end                    pgtype.Time
		createdAt                     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &classID, &subject, &teacher, &day, &start, &end, &createdAt); err != nil {
		return session, errors.Wrap(err, "scan session")
	}
	session.ID = uuidString(id)
	session.ClassID = uuidString(classID)
	session.SubjectID = uuidString(subject)
	session.TeacherID = uuidString(teacher)
	session.Day = model.Weekday(day)
	session.Start = clockOf(start)
	session.End = clockOf(end)
	session.CreatedAt = createdAt.Time
	return session, nil
}

func (s *Store) InsertSession(ctx context.Context, session model.ScheduledSession, check func([]model.ScheduledSession) error) (model.ScheduledSession, error) {
	var created model.ScheduledSession
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lock(ctx, tx, fmt.Sprintf("timetable:%s:%d", session.ClassID, session.Day)); err != nil {
			return err
		}
		existing, err := listSessions(ctx, tx, session.ClassID, session.Day)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}
		row := tx.QueryRow(ctx, `
      INSERT INTO scheduled_sessions (id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, created_at)
      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
      RETURNING `+sessionColumns,
			pgUUID(session.ID), pgUUID(session.ClassID), pgUUID(session.SubjectID), pgUUID(session.TeacherID),
			int16(session.Day), pgClock(session.Start), pgClock(session.End), pgTime(session.CreatedAt))
		created, err = scanSession(row)
		if err != nil {
			return classify(err, "insert session")
		}
		return nil
	})
	return created, err
}
