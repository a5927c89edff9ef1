package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateNotification appends an unread notification and returns it with its
// generated id.
func (s *Store) CreateNotification(n model.Notification) (model.Notification, error) {
	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = time.Now()
	var relatedID sql.NullInt64
	if n.RelatedID != nil {
		relatedID = sql.NullInt64{Int64: *n.RelatedID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO notifications (id, recipient_id, recipient_kind, title, message, category, related_id, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.RecipientID, n.RecipientKind, n.Title, n.Message, n.Category, relatedID, n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (s *Store) ListNotifications(recipientID int64, kind model.RecipientKind) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT id, recipient_id, recipient_kind, title, message, category, related_id, read, created_at
		 FROM notifications WHERE recipient_id = ? AND recipient_kind = ?
		 ORDER BY created_at DESC, id`,
		recipientID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var relatedID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientKind, &n.Title, &n.Message, &n.Category, &relatedID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if relatedID.Valid {
			n.RelatedID = &relatedID.Int64
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// UnreadNotificationCount returns a recipient's unread notification count.
func (s *Store) UnreadNotificationCount(recipientID int64, kind model.RecipientKind) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND recipient_kind = ? AND read = 0`,
		recipientID, kind,
	).Scan(&count)
	return count, err
}

// MarkNotificationRead flags one notification read, scoped to the recipient so
// one principal cannot advance another's read state.
func (s *Store) MarkNotificationRead(id string, recipientID int64, kind model.RecipientKind) error {
	res, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND recipient_id = ? AND recipient_kind = ?`,
		id, recipientID, kind,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFoundID("notification", id)
	}
	return nil
}

// MarkAllNotificationsRead flags every notification for a recipient read.
func (s *Store) MarkAllNotificationsRead(recipientID int64, kind model.RecipientKind) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read = 1 WHERE recipient_id = ? AND recipient_kind = ?`,
		recipientID, kind,
	)
	return err
}
