package model

import "time"

// TestBreakdown aggregates one student's attempts at a single test, grouped by
// test name.
type TestBreakdown struct {
	TestName          string `json:"test_name"`
	Attempts          int    `json:"attempts"`
	TotalScore        int    `json:"total_score"`
	BestPercentage    int    `json:"best_percentage"`
	AveragePercentage int    `json:"average_percentage"`
}

// ProgressPoint is one entry of a student's chronological progress series.
type ProgressPoint struct {
	At         time.Time `json:"at"`
	TestName   string    `json:"test_name"`
	Percentage int       `json:"percentage"`
}

// AssignmentCounts breaks a student's assignments down by status.
type AssignmentCounts struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Total     int `json:"total"`
}

// StudentReport is the per-student analytics view.
type StudentReport struct {
	StudentID   int64            `json:"student_id"`
	DisplayName string           `json:"display_name"`
	TotalScore  int              `json:"total_score"`
	SuccessRate int              `json:"success_rate"`
	Tests       []TestBreakdown  `json:"tests"`
	Progress    []ProgressPoint  `json:"progress"`
	Assignments AssignmentCounts `json:"assignments"`
}

// MentorStudentStats holds recomputed per-student stats within a mentor report.
type MentorStudentStats struct {
	StudentID         int64  `json:"student_id"`
	DisplayName       string `json:"display_name"`
	Assigned          int    `json:"assigned"`
	Completed         int    `json:"completed"`
	OnTime            int    `json:"on_time"`
	CompletionRate    int    `json:"completion_rate"`
	AveragePercentage int    `json:"average_percentage"`
}

// MentorReport summarizes every student a mentor has assigned work to.
// AveragePercentage is the mean of per-student averages, not a global
// weighted mean.
type MentorReport struct {
	MentorID          int64                `json:"mentor_id"`
	DisplayName       string               `json:"display_name"`
	Students          []MentorStudentStats `json:"students"`
	CompletionRate    int                  `json:"completion_rate"`
	AveragePercentage int                  `json:"average_percentage"`
}

// LeaderboardEntry is one row of the total-score leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	StudentID   int64  `json:"student_id"`
	DisplayName string `json:"display_name"`
	TotalScore  int    `json:"total_score"`
}

// SystemReport is the platform-wide analytics view.
type SystemReport struct {
	Students          int                `json:"students"`
	Mentors           int                `json:"mentors"`
	Tests             int                `json:"tests"`
	Results           int                `json:"results"`
	Assignments       int                `json:"assignments"`
	AveragePercentage int                `json:"average_percentage"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
}
