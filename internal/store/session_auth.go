package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/akosarev/mentorio/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession creates a new session token for a student or mentor.
func (s *Store) CreateAuthSession(principalID int64, kind model.RecipientKind) (string, error) {
	token := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, principal_id, principal_kind, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		token, principalID, kind, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the session for the given token, or nil if not
// found or expired. Expired sessions are deleted on read.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, principal_id, principal_kind, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.PrincipalID, &sess.PrincipalKind, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}
