package model

import (
	"math"
	"time"
)

// DefaultTestTimeLimitMS is applied when a test is created without a time limit.
const DefaultTestTimeLimitMS int64 = 25 * 60 * 1000

// RecipientKind distinguishes the two principal types that can receive
// notifications and hold auth sessions.
type RecipientKind string

const (
	RecipientStudent RecipientKind = "student"
	RecipientMentor  RecipientKind = "mentor"
)

// User represents a student. TotalScore and SuccessRate are denormalized
// aggregates recomputed from the student's results on every submission.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	TotalScore   int       `json:"total_score"`
	SuccessRate  int       `json:"success_rate"`
	CreatedAt    time.Time `json:"created_at"`
}

// Mentor represents a mentor account. Mentors own the tests, assignments,
// comments, learning paths and study materials they create.
type Mentor struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnswerVariant is one labeled answer option within a question.
type AnswerVariant struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is embedded in a Test and has no independent identity.
type Question struct {
	Prompt   string          `json:"prompt"`
	Variants []AnswerVariant `json:"variants"`
	Answer   string          `json:"answer"`
	Points   int             `json:"points"`
}

// Test holds an ordered sequence of questions. MaxScore is the sum of question
// points, computed once at creation and never recomputed afterwards, so
// historical results stay comparable even if the questions are edited.
type Test struct {
	ID          int64      `json:"id"`
	MentorID    int64      `json:"mentor_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TimeLimitMS int64      `json:"time_limit_ms"`
	Questions   []Question `json:"questions"`
	MaxScore    int        `json:"max_score"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Result is an immutable record of one test attempt. MaxScore is snapshotted
// from the test at submission time.
type Result struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	MentorID   *int64    `json:"mentor_id,omitempty"`
	TestID     int64     `json:"test_id"`
	Score      int       `json:"score"`
	MaxScore   int       `json:"max_score"`
	Percentage int       `json:"percentage"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentOverdue   AssignmentStatus = "overdue"
)

// Assignment is a mentor's directive that a student complete a test by a
// deadline. CompletedAt and ResultID are set only when a matching result
// completes the assignment.
type Assignment struct {
	ID          int64            `json:"id"`
	MentorID    int64            `json:"mentor_id"`
	StudentID   int64            `json:"student_id"`
	TestID      int64            `json:"test_id"`
	AssignedAt  time.Time        `json:"assigned_at"`
	Deadline    time.Time        `json:"deadline"`
	Status      AssignmentStatus `json:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	ResultID    *int64           `json:"result_id,omitempty"`
}

// OnTime reports whether a completed assignment met its deadline.
func (a Assignment) OnTime() bool {
	return a.CompletedAt != nil && !a.CompletedAt.After(a.Deadline)
}

// NotificationCategory classifies a notification.
type NotificationCategory string

const (
	CategoryAssignment  NotificationCategory = "assignment"
	CategoryResult      NotificationCategory = "result"
	CategoryDeadline    NotificationCategory = "deadline"
	CategoryAchievement NotificationCategory = "achievement"
	CategorySystem      NotificationCategory = "system"
)

// Notification is an append-only event record. Only the read flag is ever
// mutated after creation.
type Notification struct {
	ID            string               `json:"id"`
	RecipientID   int64                `json:"recipient_id"`
	RecipientKind RecipientKind        `json:"recipient_kind"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	Category      NotificationCategory `json:"category"`
	RelatedID     *int64               `json:"related_id,omitempty"`
	Read          bool                 `json:"read"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ConditionType enumerates achievement conditions. ConditionStreak is declared
// but has no evaluator and never awards.
type ConditionType string

const (
	ConditionTestsCompleted ConditionType = "tests_completed"
	ConditionTotalScore     ConditionType = "total_score"
	ConditionSuccessRate    ConditionType = "success_rate"
	ConditionPerfectScore   ConditionType = "perfect_score"
	ConditionStreak         ConditionType = "streak"
)

// Achievement is a mentor-authored award template.
type Achievement struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Condition   ConditionType `json:"condition"`
	Threshold   int           `json:"threshold"`
	Points      int           `json:"points"`
	CreatedAt   time.Time     `json:"created_at"`
}

// StudentAchievement records that a student earned an achievement. At most one
// exists per (student, achievement) pair.
type StudentAchievement struct {
	ID            int64     `json:"id"`
	StudentID     int64     `json:"student_id"`
	AchievementID int64     `json:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at"`
}

// Comment is a mentor's note on a student.
type Comment struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	StudentID int64     `json:"student_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// LearningPath is a mentor-authored ordered list of tests.
type LearningPath struct {
	ID          int64     `json:"id"`
	MentorID    int64     `json:"mentor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TestIDs     []int64   `json:"test_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// PathAssignment links a learning path to a student.
type PathAssignment struct {
	ID          int64      `json:"id"`
	PathID      int64      `json:"path_id"`
	StudentID   int64      `json:"student_id"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StudyMaterial is a mentor-authored resource link.
type StudyMaterial struct {
	ID          int64     `json:"id"`
	MentorID    int64     `json:"mentor_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthSession is a logged-in principal's session token.
type AuthSession struct {
	ID            string
	PrincipalID   int64
	PrincipalKind RecipientKind
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Percent returns part/whole as an integer percentage, rounded half away from
// zero. Callers must guard whole == 0.
func Percent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// RoundedMean returns the rounded mean of vs, or 0 for an empty slice.
func RoundedMean(vs []int) int {
	if len(vs) == 0 {
		return 0
	}
	sum := 0
	for _, v := range vs {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(vs))))
}
