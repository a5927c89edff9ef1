// Package achievement evaluates achievement conditions against a student's
// accumulated results and idempotently awards what they have earned.
package achievement

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

// Evaluator scans achievement templates against a student's aggregate state.
type Evaluator struct {
	store *store.Store
}

// New creates an evaluator over the given store.
func New(s *store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// Check awards every satisfied, not-yet-earned achievement to the student and
// returns the newly awarded templates plus one achievement event each.
// Idempotent: a second call with no new qualifying data returns nothing and
// writes nothing.
func (e *Evaluator) Check(studentID int64) ([]model.Achievement, []model.Event, error) {
	user, err := e.store.GetUserByID(studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("look up student: %w", err)
	}
	if user == nil {
		return nil, nil, model.NotFound("user", studentID)
	}

	achievements, err := e.store.ListAchievements()
	if err != nil {
		return nil, nil, err
	}
	earned, err := e.store.EarnedAchievementIDs(studentID)
	if err != nil {
		return nil, nil, err
	}
	results, err := e.store.ListResultsByStudent(studentID)
	if err != nil {
		return nil, nil, err
	}

	perfect := 0
	for _, r := range results {
		if r.Percentage == 100 {
			perfect++
		}
	}

	awarded := []model.Achievement{}
	var events []model.Event
	for _, a := range achievements {
		if earned[a.ID] {
			continue
		}
		if !satisfied(a, user, len(results), perfect) {
			continue
		}
		if _, err := e.store.AwardAchievement(studentID, a.ID); err != nil {
			// A concurrent check may have awarded it first; treat as earned.
			if errors.Is(err, model.ErrConflict) {
				continue
			}
			return nil, nil, fmt.Errorf("award achievement %d: %w", a.ID, err)
		}
		slog.Info("awarded achievement", "student_id", studentID, "achievement_id", a.ID, "name", a.Name)
		awarded = append(awarded, a)
		events = append(events, model.Event{
			Kind:          model.EventAchievementEarned,
			RecipientID:   studentID,
			RecipientKind: model.RecipientStudent,
			RelatedID:     &a.ID,
			Data:          map[string]any{"Name": a.Name},
		})
	}
	return awarded, events, nil
}

func satisfied(a model.Achievement, user *model.User, resultCount, perfectCount int) bool {
	switch a.Condition {
	case model.ConditionTestsCompleted:
		return resultCount >= a.Threshold
	case model.ConditionTotalScore:
		return user.TotalScore >= a.Threshold
	case model.ConditionSuccessRate:
		return user.SuccessRate >= a.Threshold
	case model.ConditionPerfectScore:
		return perfectCount >= a.Threshold
	case model.ConditionStreak:
		// Declared but unimplemented: streak conditions never award.
		return false
	default:
		return false
	}
}
