package store

import (
	"database/sql"
	"time"

	"github.com/akosarev/mentorio/internal/model"
)

// CreateAchievement stores an achievement template.
func (s *Store) CreateAchievement(a model.Achievement) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO achievements (name, description, icon, condition_type, threshold, points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Description, a.Icon, a.Condition, a.Threshold, a.Points, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAchievement returns an achievement by ID, or nil if missing.
func (s *Store) GetAchievement(id int64) (*model.Achievement, error) {
	var a model.Achievement
	err := s.db.QueryRow(
		`SELECT id, name, description, icon, condition_type, threshold, points, created_at
		 FROM achievements WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Condition, &a.Threshold, &a.Points, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAchievements returns all achievement templates ordered by id.
func (s *Store) ListAchievements() ([]model.Achievement, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, icon, condition_type, threshold, points, created_at
		 FROM achievements ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	achievements := []model.Achievement{}
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Condition, &a.Threshold, &a.Points, &a.CreatedAt); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// EarnedAchievementIDs returns the set of achievement ids a student holds.
func (s *Store) EarnedAchievementIDs(studentID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT achievement_id FROM student_achievements WHERE student_id = ?`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	earned := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// AwardAchievement records a student earning an achievement. The UNIQUE index
// backs up the evaluator's earned-set check; a duplicate award surfaces as
// model.ErrConflict.
func (s *Store) AwardAchievement(studentID, achievementID int64) (model.StudentAchievement, error) {
	sa := model.StudentAchievement{
		StudentID:     studentID,
		AchievementID: achievementID,
		EarnedAt:      time.Now(),
	}
	res, err := s.db.Exec(
		`INSERT INTO student_achievements (student_id, achievement_id, earned_at) VALUES (?, ?, ?)`,
		studentID, achievementID, sa.EarnedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.StudentAchievement{}, model.ErrConflict
		}
		return model.StudentAchievement{}, err
	}
	if sa.ID, err = res.LastInsertId(); err != nil {
		return model.StudentAchievement{}, err
	}
	return sa, nil
}

// ListStudentAchievements returns a student's earned achievements ordered by
// earn time.
func (s *Store) ListStudentAchievements(studentID int64) ([]model.StudentAchievement, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, achievement_id, earned_at
		 FROM student_achievements WHERE student_id = ? ORDER BY earned_at, id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	earned := []model.StudentAchievement{}
	for rows.Next() {
		var sa model.StudentAchievement
		if err := rows.Scan(&sa.ID, &sa.StudentID, &sa.AchievementID, &sa.EarnedAt); err != nil {
			return nil, err
		}
		earned = append(earned, sa)
	}
	return earned, rows.Err()
}
