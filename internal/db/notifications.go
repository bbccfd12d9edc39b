package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"institute/portal/internal/model"
)

const insertNotificationSQL = `
  INSERT INTO notifications (id, recipient_role, recipient_id, title, message, is_read, created_at)
  VALUES ($1, $2, $3, $4, $5, false, $6)
`

func notificationArgs(note model.Notification) []any {
	return []any{pgUUID(note.ID), string(note.RecipientRole), pgUUID(note.RecipientID), note.Title, note.Message, pgTime(note.CreatedAt)}
}

func queueNotifications(batch *pgx.Batch, notes []model.Notification) {
	for _, note := range notes {
		batch.Queue(insertNotificationSQL, notificationArgs(note)...)
	}
}

func insertNotification(ctx context.Context, tx pgx.Tx, note model.Notification) error {
	_, err := tx.Exec(ctx, insertNotificationSQL, notificationArgs(note)...)
	return errors.Wrap(err, "insert notification")
}

func (s *Store) ListNotifications(ctx context.Context, role model.Role, recipientID string, limit int) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT id, recipient_role, recipient_id, title, message, is_read, created_at
    FROM notifications
    WHERE recipient_role = $1 AND (recipient_id IS NULL OR recipient_id = $2)
    ORDER BY created_at DESC
    LIMIT $3
  `, string(role), pgUUID(recipientID), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	notes := make([]model.Notification, 0)
	for rows.Next() {
		var (
			note          model.Notification
			id, recipient pgtype.UUID
			recipientRole string
			createdAt     pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &recipientRole, &recipient, &note.Title, &note.Message, &note.IsRead, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		note.ID = uuidString(id)
		note.RecipientRole = model.Role(recipientRole)
		note.RecipientID = uuidString(recipient)
		note.CreatedAt = createdAt.Time
		notes = append(notes, note)
	}
	return notes, errors.Wrap(rows.Err(), "list notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, role model.Role, recipientID string) error {
	tag, err := s.pool.Exec(ctx, `
    UPDATE notifications
    SET is_read = true
    WHERE id = $1 AND recipient_role = $2 AND (recipient_id IS NULL OR recipient_id = $3)
  `, pgUUID(id), string(role), pgUUID(recipientID))
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(model.ErrNotFound, "notification %s", id)
	}
	return nil
}

func (s *Store) PurgeNotifications(ctx context.Context, readBefore time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE is_read AND created_at < $1`, pgTime(readBefore))
	if err != nil {
		return 0, errors.Wrap(err, "purge notifications")
	}
	return tag.RowsAffected(), nil
}
