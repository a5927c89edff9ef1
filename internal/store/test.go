package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateTest stores a test with its embedded questions. MaxScore is computed
// here, once, as the sum of question point values; it is never recomputed if
// questions change later. A zero time limit falls back to the default.
func (s *Store) CreateTest(t model.Test) (int64, error) {
	maxScore := 0
	for _, q := range t.Questions {
		maxScore += q.Points
	}
	if t.TimeLimitMS == 0 {
		t.TimeLimitMS = model.DefaultTestTimeLimitMS
	}
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return 0, fmt.Errorf("marshal questions: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO tests (mentor_id, name, description, time_limit_ms, questions, max_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.MentorID, t.Name, t.Description, t.TimeLimitMS, string(questions), maxScore, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTest returns a test by ID, or nil if missing.
func (s *Store) GetTest(id int64) (*model.Test, error) {
	var t model.Test
	var questions string
	err := s.db.QueryRow(
		`SELECT id, mentor_id, name, description, time_limit_ms, questions, max_score, created_at
		 FROM tests WHERE id = ?`, id,
	).Scan(&t.ID, &t.MentorID, &t.Name, &t.Description, &t.TimeLimitMS, &questions, &t.MaxScore, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &t.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions for test %d: %w", id, err)
	}
	return &t, nil
}

// ListTests returns tests, optionally filtered by mentor (0 means all).
func (s *Store) ListTests(mentorID int64) ([]model.Test, error) {
	query := `SELECT id, mentor_id, name, description, time_limit_ms, questions, max_score, created_at FROM tests`
	var args []any
	if mentorID != 0 {
		query += ` WHERE mentor_id = ?`
		args = append(args, mentorID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tests := []model.Test{}
	for rows.Next() {
		var t model.Test
		var questions string
		if err := rows.Scan(&t.ID, &t.MentorID, &t.Name, &t.Description, &t.TimeLimitMS, &questions, &t.MaxScore, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &t.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions for test %d: %w", t.ID, err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// DeleteTest removes a test. Existing results keep their snapshotted max
// score; no cascade.
func (s *Store) DeleteTest(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("test", id)
	}
	return nil
}

// TestCount returns the total number of tests.
func (s *Store) TestCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tests`).Scan(&count)
	return count, err
}
