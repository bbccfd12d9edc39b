package operations

import (
	"context"
	"errors"
	"time"

	"institute/portal/internal/model"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// ListNotifications returns notifications addressed to the recipient or to
// its whole role, newest first.
func (s *Service) ListNotifications(ctx context.Context, role model.Role, recipientID string, limit int) ([]model.Notification, error) {
	if err := requireUUIDs("recipient_id", recipientID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	notes, err := s.store.ListNotifications(ctx, role, recipientID, limit)
	if err != nil {
		return nil, persistenceError(err)
	}
	return notes, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string, role model.Role, recipientID string) error {
	if err := requireUUIDs("notification_id", id, "recipient_id", recipientID); err != nil {
		return err
	}
	if err := s.store.MarkNotificationRead(ctx, id, role, recipientID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &Error{Kind: KindNotFound, Code: ErrNotificationFound, Message: "notification not found", Err: err}
		}
		return persistenceError(err)
	}
	return nil
}

// PurgeNotifications deletes read notifications older than retention.
func (s *Service) PurgeNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	deleted, err := s.store.PurgeNotifications(ctx, cutoff)
	if err != nil {
		return 0, persistenceError(err)
	}
	return deleted, nil
}
