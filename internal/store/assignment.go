package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateAssignment inserts a pending assignment. It fails with
// model.ErrConflict when a pending assignment for the same (student, test)
// pair already exists; overdue and completed siblings do not block creation.
func (s *Store) CreateAssignment(a model.Assignment) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM assignments WHERE student_id = ? AND test_id = ? AND status = 'pending'`,
		a.StudentID, a.TestID,
	).Scan(&existing)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, fmt.Errorf("pending assignment for student %d test %d: %w", a.StudentID, a.TestID, model.ErrConflict)
	}

	res, err := tx.Exec(
		`INSERT INTO assignments (mentor_id, student_id, test_id, assigned_at, deadline, status)
		 VALUES (?, ?, ?, ?, ?, 'pending')`,
		a.MentorID, a.StudentID, a.TestID, time.Now(), a.Deadline,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetAssignment returns an assignment by ID, or nil if missing.
func (s *Store) GetAssignment(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT id, mentor_id, student_id, test_id, assigned_at, deadline, status, completed_at, result_id
		 FROM assignments WHERE id = ?`, id,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SweepOverdueForStudent flips a student's expired pending assignments to
// overdue. The status guard makes the sweep a no-op for assignments completed
// concurrently: completion always wins.
func (s *Store) SweepOverdueForStudent(studentID int64) error {
	res, err := s.db.Exec(
		`UPDATE assignments SET status = 'overdue'
		 WHERE student_id = ? AND status = 'pending' AND deadline < ?`,
		studentID, time.Now(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("marked assignments overdue", "student_id", studentID, "count", n)
	}
	return nil
}

// SweepOverdueForMentor flips expired pending assignments issued by a mentor.
func (s *Store) SweepOverdueForMentor(mentorID int64) error {
	res, err := s.db.Exec(
		`UPDATE assignments SET status = 'overdue'
		 WHERE mentor_id = ? AND status = 'pending' AND deadline < ?`,
		mentorID, time.Now(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("marked assignments overdue", "mentor_id", mentorID, "count", n)
	}
	return nil
}

// ListAssignmentsByStudent returns a student's assignments ordered by deadline.
func (s *Store) ListAssignmentsByStudent(studentID int64) ([]model.Assignment, error) {
	return s.listAssignments(
		`SELECT id, mentor_id, student_id, test_id, assigned_at, deadline, status, completed_at, result_id
		 FROM assignments WHERE student_id = ? ORDER BY deadline, id`, studentID)
}

// ListAssignmentsByMentor returns a mentor's assignments ordered by deadline.
func (s *Store) ListAssignmentsByMentor(mentorID int64) ([]model.Assignment, error) {
	return s.listAssignments(
		`SELECT id, mentor_id, student_id, test_id, assigned_at, deadline, status, completed_at, result_id
		 FROM assignments WHERE mentor_id = ? ORDER BY deadline, id`, mentorID)
}

func (s *Store) listAssignments(query string, args ...any) ([]model.Assignment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assignments := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row rowScanner) (model.Assignment, error) {
	var a model.Assignment
	var completedAt sql.NullTime
	var resultID sql.NullInt64
	err := row.Scan(&a.ID, &a.MentorID, &a.StudentID, &a.TestID, &a.AssignedAt, &a.Deadline, &a.Status, &completedAt, &resultID)
	if err != nil {
		return model.Assignment{}, err
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if resultID.Valid {
		a.ResultID = &resultID.Int64
	}
	return a, nil
}

// ExtendAssignment revives an assignment: back to pending with a new deadline
// and cleared completion fields.
func (s *Store) ExtendAssignment(id int64, newDeadline time.Time) (*model.Assignment, error) {
	res, err := s.db.Exec(
		`UPDATE assignments SET status = 'pending', deadline = ?, completed_at = NULL, result_id = NULL
		 WHERE id = ?`,
		newDeadline, id,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.NotFound("assignment", id)
	}
	slog.Info("extended assignment", "id", id, "deadline", newDeadline)
	return s.GetAssignment(id)
}

// DeleteAssignment hard-deletes an assignment in any status.
func (s *Store) DeleteAssignment(id int64) error {
	res, err := s.db.Exec(`DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("assignment", id)
	}
	return nil
}

// AssignmentCount returns the total number of assignments.
func (s *Store) AssignmentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assignments`).Scan(&count)
	return count, err
}
