package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateComment stores a mentor's note on a student.
func (s *Store) CreateComment(c model.Comment) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO comments (mentor_id, student_id, text, created_at) VALUES (?, ?, ?, ?)`,
		c.MentorID, c.StudentID, c.Text, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCommentsByStudent returns a student's comments, newest first.
func (s *Store) ListCommentsByStudent(studentID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT id, mentor_id, student_id, text, created_at
		 FROM comments WHERE student_id = ? ORDER BY created_at DESC, id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.MentorID, &c.StudentID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateLearningPath stores a learning path with its ordered test ids.
func (s *Store) CreateLearningPath(p model.LearningPath) (int64, error) {
	testIDs, err := json.Marshal(p.TestIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal test ids: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO learning_paths (mentor_id, title, description, test_ids, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.MentorID, p.Title, p.Description, string(testIDs), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetLearningPath returns a learning path by ID, or nil if missing.
func (s *Store) GetLearningPath(id int64) (*model.LearningPath, error) {
	var p model.LearningPath
	var testIDs string
	err := s.db.QueryRow(
		`SELECT id, mentor_id, title, description, test_ids, created_at
		 FROM learning_paths WHERE id = ?`, id,
	).Scan(&p.ID, &p.MentorID, &p.Title, &p.Description, &testIDs, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(testIDs), &p.TestIDs); err != nil {
		return nil, fmt.Errorf("unmarshal test ids for path %d: %w", id, err)
	}
	return &p, nil
}

// AssignPath links a path to a student. Fails with model.ErrConflict while an
// uncompleted assignment of the same path to the same student exists.
func (s *Store) AssignPath(pathID, studentID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM path_assignments
		 WHERE path_id = ? AND student_id = ? AND completed_at IS NULL`,
		pathID, studentID,
	).Scan(&active)
	if err != nil {
		return 0, err
	}
	if active > 0 {
		return 0, fmt.Errorf("path %d already assigned to student %d: %w", pathID, studentID, model.ErrConflict)
	}

	res, err := tx.Exec(
		`INSERT INTO path_assignments (path_id, student_id, assigned_at) VALUES (?, ?, ?)`,
		pathID, studentID, time.Now(),
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

// CompletePathAssignment stamps a path assignment completed.
func (s *Store) CompletePathAssignment(id int64) (*model.PathAssignment, error) {
	res, err := s.db.Exec(
		`UPDATE path_assignments SET completed_at = ? WHERE id = ? AND completed_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.NotFound("path assignment", id)
	}
	return s.GetPathAssignment(id)
}

// GetPathAssignment returns a path assignment by ID, or nil if missing.
func (s *Store) GetPathAssignment(id int64) (*model.PathAssignment, error) {
	var pa model.PathAssignment
	var completedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, path_id, student_id, assigned_at, completed_at
		 FROM path_assignments WHERE id = ?`, id,
	).Scan(&pa.ID, &pa.PathID, &pa.StudentID, &pa.AssignedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		pa.CompletedAt = &completedAt.Time
	}
	return &pa, nil
}

// ListPathAssignmentsByStudent returns a student's path assignments.
func (s *Store) ListPathAssignmentsByStudent(studentID int64) ([]model.PathAssignment, error) {
	rows, err := s.db.Query(
		`SELECT id, path_id, student_id, assigned_at, completed_at
		 FROM path_assignments WHERE student_id = ? ORDER BY assigned_at, id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assignments := []model.PathAssignment{}
	for rows.Next() {
		var pa model.PathAssignment
		var completedAt sql.NullTime
		if err := rows.Scan(&pa.ID, &pa.PathID, &pa.StudentID, &pa.AssignedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			pa.CompletedAt = &completedAt.Time
		}
		assignments = append(assignments, pa)
	}
	return assignments, rows.Err()
}

// CreateStudyMaterial stores a study material.
func (s *Store) CreateStudyMaterial(m model.StudyMaterial) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO study_materials (mentor_id, title, url, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.MentorID, m.Title, m.URL, m.Description, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListStudyMaterialsByMentor returns a mentor's study materials.
func (s *Store) ListStudyMaterialsByMentor(mentorID int64) ([]model.StudyMaterial, error) {
	rows, err := s.db.Query(
		`SELECT id, mentor_id, title, url, description, created_at
		 FROM study_materials WHERE mentor_id = ? ORDER BY id`, mentorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	materials := []model.StudyMaterial{}
	for rows.Next() {
		var m model.StudyMaterial
		if err := rows.Scan(&m.ID, &m.MentorID, &m.Title, &m.URL, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// DeleteStudyMaterial removes a study material.
func (s *Store) DeleteStudyMaterial(id int64) error {
	res, err := s.db.Exec(`DELETE FROM study_materials WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("study material", id)
	}
	return nil
}
