package assignment

import (
	"errors"
	"testing"
	"time"

	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func setupFixtures(t *testing.T, s *store.Store) (mentorID, studentID, testID int64) {
	t.Helper()
	mentorID, err := s.CreateMentor(model.Mentor{Login: "mentor", DisplayName: "Mentor", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateMentor: %v", err)
	}
	studentID, err = s.CreateUser(model.User{Login: "student", DisplayName: "Student", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	testID, err = s.CreateTest(model.Test{
		MentorID:  mentorID,
		Name:      "Sample",
		Questions: []model.Question{{Prompt: "q", Answer: "a", Points: 10}},
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	return mentorID, studentID, testID
}

func TestCreateAssignment(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	deadline := time.Now().Add(24 * time.Hour)
	a, err := m.Create(mentorID, studentID, testID, deadline)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != model.AssignmentPending {
		t.Errorf("expected pending, got %q", a.Status)
	}
	if a.CompletedAt != nil || a.ResultID != nil {
		t.Errorf("expected empty completion fields, got %+v", a)
	}

	// Referential checks.
	if _, err := m.Create(9999, studentID, testID, deadline); !model.IsNotFound(err) {
		t.Errorf("expected not found for unknown mentor, got %v", err)
	}
	if _, err := m.Create(mentorID, 9999, testID, deadline); !model.IsNotFound(err) {
		t.Errorf("expected not found for unknown student, got %v", err)
	}
	if _, err := m.Create(mentorID, studentID, 9999, deadline); !model.IsNotFound(err) {
		t.Errorf("expected not found for unknown test, got %v", err)
	}

	// Duplicate pending assignment.
	if _, err := m.Create(mentorID, studentID, testID, deadline); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestLazySweepVisibleInSameRead(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	if _, err := m.Create(mentorID, studentID, testID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The expired assignment flips to overdue in the very read that
	// observes it.
	list, err := m.ListForStudent(studentID)
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(list))
	}
	if list[0].Status != model.AssignmentOverdue {
		t.Errorf("expected overdue in same read, got %q", list[0].Status)
	}

	// Mentor-side reads sweep too.
	list, err = m.ListForMentor(mentorID)
	if err != nil {
		t.Fatalf("ListForMentor: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.AssignmentOverdue {
		t.Errorf("expected overdue via mentor read, got %+v", list)
	}
}

func TestCompletionWinsOverSweep(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	a, err := m.Create(mentorID, studentID, testID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The result lands while the assignment is still pending in the DB.
	_, completed, err := s.RecordSubmission(model.Result{
		StudentID: studentID, TestID: testID, Score: 10, MaxScore: 10, Percentage: 100,
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
	if completed == nil || completed.ID != a.ID {
		t.Fatalf("expected assignment completed, got %+v", completed)
	}

	// A later sweep must not regress the completed assignment.
	list, err := m.ListForStudent(studentID)
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if list[0].Status != model.AssignmentCompleted {
		t.Errorf("expected completed to survive sweep, got %q", list[0].Status)
	}
}

func TestExtendRevivesAndEmitsEvent(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	a, err := m.Create(mentorID, studentID, testID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.ListForStudent(studentID); err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}

	newDeadline := time.Now().Add(72 * time.Hour)
	extended, events, err := m.Extend(a.ID, newDeadline)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if extended.Status != model.AssignmentPending {
		t.Errorf("expected pending after extend, got %q", extended.Status)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != model.EventDeadlineExtended {
		t.Errorf("expected deadline_extended event, got %q", ev.Kind)
	}
	if ev.RecipientID != studentID || ev.RecipientKind != model.RecipientStudent {
		t.Errorf("expected event addressed to student %d, got %+v", studentID, ev)
	}
	if ev.RelatedID == nil || *ev.RelatedID != a.ID {
		t.Errorf("expected related ID %d, got %v", a.ID, ev.RelatedID)
	}

	if _, _, err := m.Extend(9999, newDeadline); !model.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	a, err := m.Create(mentorID, studentID, testID, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Cancel(a.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := m.Cancel(a.ID); !model.IsNotFound(err) {
		t.Errorf("expected not found on second cancel, got %v", err)
	}

	list, err := m.ListForStudent(studentID)
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no assignments after cancel, got %d", len(list))
	}
}

func TestCompletionRate(t *testing.T) {
	m, s := newTestManager(t)
	mentorID, studentID, testID := setupFixtures(t, s)

	rate, err := m.CompletionRate(studentID)
	if err != nil {
		t.Fatalf("CompletionRate empty: %v", err)
	}
	if rate != 0 {
		t.Errorf("expected 0 for no assignments, got %d", rate)
	}

	// One completed, one pending, one overdue: 1/3 -> 33.
	if _, err := m.Create(mentorID, studentID, testID, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if _, _, err := s.RecordSubmission(model.Result{
		StudentID: studentID, TestID: testID, Score: 10, MaxScore: 10, Percentage: 100,
	}); err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	t2, err := s.CreateTest(model.Test{
		MentorID:  mentorID,
		Name:      "Second",
		Questions: []model.Question{{Prompt: "q", Answer: "a", Points: 10}},
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if _, err := m.Create(mentorID, studentID, t2, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	t3, err := s.CreateTest(model.Test{
		MentorID:  mentorID,
		Name:      "Third",
		Questions: []model.Question{{Prompt: "q", Answer: "a", Points: 10}},
	})
	if err != nil {
		t.Fatalf("CreateTest third: %v", err)
	}
	if _, err := m.Create(mentorID, studentID, t3, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create third: %v", err)
	}

	rate, err = m.CompletionRate(studentID)
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if rate != 33 {
		t.Errorf("expected rate 33, got %d", rate)
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.AssignmentStatus
		want     int
	}{
		{"empty", nil, 0},
		{"all completed", []model.AssignmentStatus{model.AssignmentCompleted, model.AssignmentCompleted}, 100},
		{"half", []model.AssignmentStatus{model.AssignmentCompleted, model.AssignmentPending}, 50},
		{"two thirds", []model.AssignmentStatus{model.AssignmentCompleted, model.AssignmentCompleted, model.AssignmentOverdue}, 67},
		{"none completed", []model.AssignmentStatus{model.AssignmentPending, model.AssignmentOverdue}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignments := make([]model.Assignment, len(tt.statuses))
			for i, st := range tt.statuses {
				assignments[i] = model.Assignment{Status: st}
			}
			if got := Rate(assignments); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
