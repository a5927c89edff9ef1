package store

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateUser inserts a new student account. Returns model.ErrConflict if the
// login is already taken.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (login, display_name, password_hash, total_score, success_rate, created_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		u.Login, u.DisplayName, u.PasswordHash, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrConflict
		}
		slog.Error("failed to create user", "login", u.Login, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "login", u.Login)
	return id, nil
}

// GetUserByID returns a user by ID, or nil if missing.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, login, display_name, password_hash, total_score, success_rate, created_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Login, &u.DisplayName, &u.PasswordHash, &u.TotalScore, &u.SuccessRate, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByLogin returns a user by login, or nil if missing.
func (s *Store) GetUserByLogin(login string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, login, display_name, password_hash, total_score, success_rate, created_at
		 FROM users WHERE login = ?`, login,
	).Scan(&u.ID, &u.Login, &u.DisplayName, &u.PasswordHash, &u.TotalScore, &u.SuccessRate, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all students ordered by id.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT id, login, display_name, password_hash, total_score, success_rate, created_at
		 FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Login, &u.DisplayName, &u.PasswordHash, &u.TotalScore, &u.SuccessRate, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TopUsersByScore returns up to limit students ordered by total score
// descending, ties broken by id.
func (s *Store) TopUsersByScore(limit int) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT id, login, display_name, password_hash, total_score, success_rate, created_at
		 FROM users ORDER BY total_score DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Login, &u.DisplayName, &u.PasswordHash, &u.TotalScore, &u.SuccessRate, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of students.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateMentor inserts a new mentor account. Returns model.ErrConflict if the
// login is already taken.
func (s *Store) CreateMentor(m model.Mentor) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO mentors (login, display_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		m.Login, m.DisplayName, m.PasswordHash, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrConflict
		}
		slog.Error("failed to create mentor", "login", m.Login, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created mentor", "id", id, "login", m.Login)
	return id, nil
}

// GetMentorByID returns a mentor by ID, or nil if missing.
func (s *Store) GetMentorByID(id int64) (*model.Mentor, error) {
	var m model.Mentor
	err := s.db.QueryRow(
		`SELECT id, login, display_name, password_hash, created_at FROM mentors WHERE id = ?`, id,
	).Scan(&m.ID, &m.Login, &m.DisplayName, &m.PasswordHash, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMentorByLogin returns a mentor by login, or nil if missing.
func (s *Store) GetMentorByLogin(login string) (*model.Mentor, error) {
	var m model.Mentor
	err := s.db.QueryRow(
		`SELECT id, login, display_name, password_hash, created_at FROM mentors WHERE login = ?`, login,
	).Scan(&m.ID, &m.Login, &m.DisplayName, &m.PasswordHash, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMentors returns all mentors ordered by id.
func (s *Store) ListMentors() ([]model.Mentor, error) {
	rows, err := s.db.Query(
		`SELECT id, login, display_name, password_hash, created_at FROM mentors ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	mentors := []model.Mentor{}
	for rows.Next() {
		var m model.Mentor
		if err := rows.Scan(&m.ID, &m.Login, &m.DisplayName, &m.PasswordHash, &m.CreatedAt); err != nil {
			return nil, err
		}
		mentors = append(mentors, m)
	}
	return mentors, rows.Err()
}

// MentorCount returns the total number of mentors.
func (s *Store) MentorCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM mentors`).Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
