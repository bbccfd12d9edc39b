package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"institute/portal/internal/model"
)

// requestTable describes where a request kind lives. Enrollments have no
// amount or reference and payments no course, so the missing columns are
// selected as constants to share one scanner.
type requestTable struct {
	name    string
	columns string
}

var requestTables = map[model.RequestKind]requestTable{
	model.RequestEnrollment: {
		name:    "enrollment_requests",
		columns: `id, student_id, course_id, 0::bigint, ''::text, status, remarks, reviewed_by, created_at, reviewed_at`,
	},
	model.RequestPayment: {
		name:    "payment_transactions",
		columns: `id, student_id, NULL::uuid, amount, reference, status, remarks, reviewed_by, created_at, reviewed_at`,
	},
}

func tableFor(kind model.RequestKind) (requestTable, error) {
	table, ok := requestTables[kind]
	if !ok {
		return requestTable{}, errors.Errorf("unknown request kind %q", kind)
	}
	return table, nil
}

func scanRequest(kind model.RequestKind, row pgx.Row) (model.Request, error) {
	var (
		req                                  model.Request
		id, studentID, courseID, reviewedBy pgtype.UUID
		status                               string
		createdAt, reviewedAt                pgtype.Timestamptz
	)
	err := row.Scan(&id, &studentID, &courseID, &req.Amount, &req.Reference, &status, &req.Remarks, &reviewedBy, &createdAt, &reviewedAt)
	if err != nil {
		return req, err
	}
	req.ID = uuidString(id)
	req.Kind = kind
	req.StudentID = uuidString(studentID)
	req.CourseID = uuidString(courseID)
	req.Status = model.RequestStatus(status)
	req.ReviewedBy = uuidString(reviewedBy)
	req.CreatedAt = createdAt.Time
	if reviewedAt.Valid {
		at := reviewedAt.Time
		req.ReviewedAt = &at
	}
	return req, nil
}

func (s *Store) CreateRequest(ctx context.Context, req model.Request, note model.Notification) (model.Request, error) {
	table, err := tableFor(req.Kind)
	if err != nil {
		return model.Request{}, err
	}
	var created model.Request
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		var row pgx.Row
		switch req.Kind {
		case model.RequestEnrollment:
			row = tx.QueryRow(ctx, `
        INSERT INTO enrollment_requests (id, student_id, course_id, status, created_at)
        VALUES ($1, $2, $3, 'pending', $4)
        RETURNING `+table.columns,
				pgUUID(req.ID), pgUUID(req.StudentID), pgUUID(req.CourseID), pgTime(req.CreatedAt))
		case model.RequestPayment:
			row = tx.QueryRow(ctx, `
        INSERT INTO payment_transactions (id, student_id, amount, reference, status, created_at)
        VALUES ($1, $2, $3, $4, 'pending', $5)
        RETURNING `+table.columns,
				pgUUID(req.ID), pgUUID(req.StudentID), req.Amount, req.Reference, pgTime(req.CreatedAt))
		}
		created, err = scanRequest(req.Kind, row)
		if err != nil {
			return classify(err, "insert "+table.name)
		}
		return insertNotification(ctx, tx, note)
	})
	return created, err
}

func (s *Store) GetRequest(ctx context.Context, kind model.RequestKind, id string) (model.Request, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.Request{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+table.columns+` FROM `+table.name+` WHERE id = $1`, pgUUID(id))
	req, err := scanRequest(kind, row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Request{}, errors.Wrapf(model.ErrNotFound, "%s %s", table.name, id)
	}
	return req, errors.Wrap(err, "get "+table.name)
}

func (s *Store) ListRequests(ctx context.Context, kind model.RequestKind, status model.RequestStatus) ([]model.Request, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
    SELECT `+table.columns+`
    FROM `+table.name+`
    WHERE $1 = '' OR status = $1
    ORDER BY created_at DESC
  `, string(status))
	if err != nil {
		return nil, errors.Wrap(err, "list "+table.name)
	}
	defer rows.Close()

	reqs := make([]model.Request, 0)
	for rows.Next() {
		req, err := scanRequest(kind, rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan "+table.name)
		}
		reqs = append(reqs, req)
	}
	return reqs, errors.Wrap(rows.Err(), "list "+table.name)
}

// TransitionRequest updates the request only while it is still pending.
// A concurrent reviewer that lost the race sees zero rows and gets
// model.ErrNotPending.
func (s *Store) TransitionRequest(ctx context.Context, t model.Transition, notify func(model.Request) model.Notification) (model.Request, model.Notification, error) {
	table, err := tableFor(t.Kind)
	if err != nil {
		return model.Request{}, model.Notification{}, err
	}
	var (
		updated model.Request
		note    model.Notification
	)
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
      UPDATE `+table.name+`
      SET status = $1, remarks = $2, reviewed_by = $3, reviewed_at = $4
      WHERE id = $5 AND status = 'pending'
      RETURNING `+table.columns,
			string(t.To), t.Remarks, pgUUID(t.ActorID), pgTime(t.At), pgUUID(t.RequestID))
		updated, err = scanRequest(t.Kind, row)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table.name+` WHERE id = $1)`, pgUUID(t.RequestID)).Scan(&exists); err != nil {
				return errors.Wrap(err, "check "+table.name)
			}
			if exists {
				return errors.Wrapf(model.ErrNotPending, "%s %s", table.name, t.RequestID)
			}
			return errors.Wrapf(model.ErrNotFound, "%s %s", table.name, t.RequestID)
		}
		if err != nil {
			return errors.Wrap(err, "update "+table.name)
		}

		if updated.Kind == model.RequestEnrollment && updated.Status == model.StatusApproved {
			if _, err := tx.Exec(ctx, `
        INSERT INTO course_enrollments (student_id, course_id, enrolled_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (student_id, course_id) DO NOTHING
      `, pgUUID(updated.StudentID), pgUUID(updated.CourseID), pgTime(t.At)); err != nil {
				return classify(err, "insert course enrollment")
			}
		}

		if notify != nil {
			note = notify(updated)
			return insertNotification(ctx, tx, note)
		}
		return nil
	})
	if err != nil {
		return model.Request{}, model.Notification{}, err
	}
	return updated, note, nil
}
