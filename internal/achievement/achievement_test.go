package achievement

import (
	"testing"

	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func setupStudent(t *testing.T, s *store.Store) (studentID, testID int64) {
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
		Questions: []model.Question{{Prompt: "q", Answer: "a", Points: 100}},
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	return studentID, testID
}

func submit(t *testing.T, s *store.Store, studentID, testID int64, score int) {
	t.Helper()
	_, _, err := s.RecordSubmission(model.Result{
		StudentID:  studentID,
		TestID:     testID,
		Score:      score,
		MaxScore:   100,
		Percentage: score,
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}
}

func addAchievement(t *testing.T, s *store.Store, name string, cond model.ConditionType, threshold int) int64 {
	t.Helper()
	id, err := s.CreateAchievement(model.Achievement{
		Name:      name,
		Condition: cond,
		Threshold: threshold,
		Points:    10,
	})
	if err != nil {
		t.Fatalf("CreateAchievement: %v", err)
	}
	return id
}

func TestCheckConditions(t *testing.T) {
	tests := []struct {
		name      string
		cond      model.ConditionType
		threshold int
		scores    []int
		wantAward bool
	}{
		{"tests completed met", model.ConditionTestsCompleted, 2, []int{50, 60}, true},
		{"tests completed unmet", model.ConditionTestsCompleted, 3, []int{50, 60}, false},
		{"total score met", model.ConditionTotalScore, 100, []int{60, 40}, true},
		{"total score unmet", model.ConditionTotalScore, 101, []int{60, 40}, false},
		{"success rate met", model.ConditionSuccessRate, 75, []int{70, 80}, true},
		{"success rate unmet", model.ConditionSuccessRate, 76, []int{70, 80}, false},
		{"success rate zero threshold no results", model.ConditionSuccessRate, 0, nil, true},
		{"perfect score met", model.ConditionPerfectScore, 1, []int{100, 50}, true},
		{"perfect score unmet", model.ConditionPerfectScore, 2, []int{100, 50}, false},
		{"streak never awards", model.ConditionStreak, 1, []int{100, 100, 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEvaluator(t)
			studentID, testID := setupStudent(t, s)
			achID := addAchievement(t, s, tt.name, tt.cond, tt.threshold)
			for _, score := range tt.scores {
				submit(t, s, studentID, testID, score)
			}

			awarded, events, err := e.Check(studentID)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if tt.wantAward {
				if len(awarded) != 1 || awarded[0].ID != achID {
					t.Fatalf("expected achievement %d awarded, got %+v", achID, awarded)
				}
				if len(events) != 1 {
					t.Fatalf("expected 1 event, got %d", len(events))
				}
				ev := events[0]
				if ev.Kind != model.EventAchievementEarned {
					t.Errorf("expected achievement event, got %q", ev.Kind)
				}
				if ev.RecipientID != studentID || ev.RecipientKind != model.RecipientStudent {
					t.Errorf("expected event for student %d, got %+v", studentID, ev)
				}
				if ev.RelatedID == nil || *ev.RelatedID != achID {
					t.Errorf("expected related ID %d, got %v", achID, ev.RelatedID)
				}
			} else {
				if len(awarded) != 0 || len(events) != 0 {
					t.Errorf("expected no award, got %+v / %+v", awarded, events)
				}
			}
		})
	}
}

func TestCheckIdempotent(t *testing.T) {
	e, s := newTestEvaluator(t)
	studentID, testID := setupStudent(t, s)
	addAchievement(t, s, "First steps", model.ConditionTestsCompleted, 1)
	submit(t, s, studentID, testID, 80)

	awarded, _, err := e.Check(studentID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(awarded) != 1 {
		t.Fatalf("expected 1 awarded, got %d", len(awarded))
	}

	// A second check with no new data awards nothing.
	awarded, events, err := e.Check(studentID)
	if err != nil {
		t.Fatalf("Check second: %v", err)
	}
	if len(awarded) != 0 || len(events) != 0 {
		t.Errorf("expected nothing on recheck, got %+v / %+v", awarded, events)
	}

	earned, _ := s.ListStudentAchievements(studentID)
	if len(earned) != 1 {
		t.Errorf("expected exactly 1 award record, got %d", len(earned))
	}
}

func TestCheckAwardsMultiple(t *testing.T) {
	e, s := newTestEvaluator(t)
	studentID, testID := setupStudent(t, s)
	addAchievement(t, s, "Starter", model.ConditionTestsCompleted, 1)
	addAchievement(t, s, "Scorer", model.ConditionTotalScore, 100)
	addAchievement(t, s, "Ace", model.ConditionPerfectScore, 1)
	addAchievement(t, s, "Grinder", model.ConditionTestsCompleted, 10)

	submit(t, s, studentID, testID, 100)

	awarded, events, err := e.Check(studentID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// Starter, Scorer and Ace qualify; Grinder does not.
	if len(awarded) != 3 {
		t.Fatalf("expected 3 awarded, got %d: %+v", len(awarded), awarded)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestCheckUnknownStudent(t *testing.T) {
	e, _ := newTestEvaluator(t)
	if _, _, err := e.Check(9999); !model.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCheckStaleAggregatesAfterDelete(t *testing.T) {
	e, s := newTestEvaluator(t)
	studentID, testID := setupStudent(t, s)
	addAchievement(t, s, "Scorer", model.ConditionTotalScore, 150)

	submit(t, s, studentID, testID, 80)
	r, _ := s.ListResultsByStudent(studentID)
	if err := s.DeleteResult(r[0].ID); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}

	// The cached total (80) is evaluated as-is; deletion does not
	// recompute it, so the threshold is still unmet.
	awarded, _, err := e.Check(studentID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("expected no award against stale total, got %+v", awarded)
	}

	// The next submission recomputes the total from the surviving results.
	submit(t, s, studentID, testID, 90)
	awarded, _, err = e.Check(studentID)
	if err != nil {
		t.Fatalf("Check after resubmit: %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("expected total 90 below threshold, got %+v", awarded)
	}
}
