package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// RecordSubmission persists a result and applies its cascade in one
// transaction: the student's total score and success rate are recomputed from
// scratch over all of their results, and the best matching pending or overdue
// assignment for (student, test) is marked completed. Returns the stored
// result and the completed assignment, if any.
func (s *Store) RecordSubmission(r model.Result) (model.Result, *model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Result{}, nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	r.CreatedAt = now

	var mentorID sql.NullInt64
	if r.MentorID != nil {
		mentorID = sql.NullInt64{Int64: *r.MentorID, Valid: true}
	}
	res, err := tx.Exec(
		`INSERT INTO results (student_id, mentor_id, test_id, score, max_score, percentage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StudentID, mentorID, r.TestID, r.Score, r.MaxScore, r.Percentage, now,
	)
	if err != nil {
		return model.Result{}, nil, fmt.Errorf("insert result: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return model.Result{}, nil, err
	}

	// Full recompute of the denormalized aggregates. Deleted results drop out
	// here, on the next submission.
	rows, err := tx.Query(`SELECT score, percentage FROM results WHERE student_id = ?`, r.StudentID)
	if err != nil {
		return model.Result{}, nil, err
	}
	total := 0
	var percentages []int
	for rows.Next() {
		var score, pct int
		if err := rows.Scan(&score, &pct); err != nil {
			rows.Close()
			return model.Result{}, nil, err
		}
		total += score
		percentages = append(percentages, pct)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Result{}, nil, err
	}
	rate := model.RoundedMean(percentages)
	if _, err := tx.Exec(
		`UPDATE users SET total_score = ?, success_rate = ? WHERE id = ?`,
		total, rate, r.StudentID,
	); err != nil {
		return model.Result{}, nil, fmt.Errorf("update user aggregates: %w", err)
	}

	// Complete the best matching open assignment: pending before overdue,
	// earliest deadline first. The status guard keeps a concurrent sweep from
	// racing this transition.
	var assignmentID int64
	err = tx.QueryRow(
		`SELECT id FROM assignments
		 WHERE student_id = ? AND test_id = ? AND status IN ('pending', 'overdue')
		 ORDER BY CASE status WHEN 'pending' THEN 0 ELSE 1 END, deadline
		 LIMIT 1`,
		r.StudentID, r.TestID,
	).Scan(&assignmentID)
	completed := err != sql.ErrNoRows
	if err != nil && err != sql.ErrNoRows {
		return model.Result{}, nil, err
	}
	if completed {
		if _, err := tx.Exec(
			`UPDATE assignments SET status = 'completed', completed_at = ?, result_id = ?
			 WHERE id = ? AND status IN ('pending', 'overdue')`,
			now, r.ID, assignmentID,
		); err != nil {
			return model.Result{}, nil, fmt.Errorf("complete assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Result{}, nil, err
	}

	slog.Info("recorded submission",
		"result_id", r.ID,
		"student_id", r.StudentID,
		"test_id", r.TestID,
		"percentage", r.Percentage,
		"total_score", total,
		"success_rate", rate,
	)

	var a *model.Assignment
	if completed {
		if a, err = s.GetAssignment(assignmentID); err != nil {
			return model.Result{}, nil, err
		}
	}
	return r, a, nil
}

// GetResult returns a result by ID, or nil if missing.
func (s *Store) GetResult(id int64) (*model.Result, error) {
	row := s.db.QueryRow(
		`SELECT id, student_id, mentor_id, test_id, score, max_score, percentage, created_at
		 FROM results WHERE id = ?`, id,
	)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResultsByStudent returns a student's results ordered by submission time.
func (s *Store) ListResultsByStudent(studentID int64) ([]model.Result, error) {
	return s.listResults(
		`SELECT id, student_id, mentor_id, test_id, score, max_score, percentage, created_at
		 FROM results WHERE student_id = ? ORDER BY created_at, id`, studentID)
}

// ListResults returns all results ordered by submission time.
func (s *Store) ListResults() ([]model.Result, error) {
	return s.listResults(
		`SELECT id, student_id, mentor_id, test_id, score, max_score, percentage, created_at
		 FROM results ORDER BY created_at, id`)
}

func (s *Store) listResults(query string, args ...any) ([]model.Result, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []model.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.Result, error) {
	var r model.Result
	var mentorID sql.NullInt64
	err := row.Scan(&r.ID, &r.StudentID, &mentorID, &r.TestID, &r.Score, &r.MaxScore, &r.Percentage, &r.CreatedAt)
	if err != nil {
		return model.Result{}, err
	}
	if mentorID.Valid {
		r.MentorID = &mentorID.Int64
	}
	return r, nil
}

// DeleteResult hard-deletes a result. No cascade: the student's cached
// aggregates stay stale until the next submission recomputes them.
func (s *Store) DeleteResult(id int64) error {
	res, err := s.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("result", id)
	}
	return nil
}

// ResultCount returns the total number of results.
func (s *Store) ResultCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}
