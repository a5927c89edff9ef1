// Package assignment manages the assignment lifecycle: pending on creation,
// overdue when the deadline lapses, completed when a matching result arrives,
// revived to pending by an explicit extension.
package assignment

import (
	"fmt"
	"time"

	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

// Manager drives assignment state transitions. The overdue transition is lazy:
// it runs as a conditional sweep inside the store immediately before any read
// of assignments or their derived stats, never on a timer.
type Manager struct {
	store *store.Store
}

// New creates an assignment manager over the given store.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create issues a pending assignment. Fails with model.ErrConflict while a
// pending assignment for the same (student, test) pair exists; overdue and
// completed siblings do not block, so several overdue assignments for one
// test may coexist.
func (m *Manager) Create(mentorID, studentID, testID int64, deadline time.Time) (*model.Assignment, error) {
	if mentor, err := m.store.GetMentorByID(mentorID); err != nil {
		return nil, err
	} else if mentor == nil {
		return nil, model.NotFound("mentor", mentorID)
	}
	if user, err := m.store.GetUserByID(studentID); err != nil {
		return nil, err
	} else if user == nil {
		return nil, model.NotFound("user", studentID)
	}
	if test, err := m.store.GetTest(testID); err != nil {
		return nil, err
	} else if test == nil {
		return nil, model.NotFound("test", testID)
	}

	id, err := m.store.CreateAssignment(model.Assignment{
		MentorID:  mentorID,
		StudentID: studentID,
		TestID:    testID,
		Deadline:  deadline,
	})
	if err != nil {
		return nil, err
	}
	return m.store.GetAssignment(id)
}

// ListForStudent sweeps the student's expired pending assignments to overdue,
// then returns all of their assignments. The sweep's effect is visible in the
// same read.
func (m *Manager) ListForStudent(studentID int64) ([]model.Assignment, error) {
	if err := m.store.SweepOverdueForStudent(studentID); err != nil {
		return nil, fmt.Errorf("overdue sweep: %w", err)
	}
	return m.store.ListAssignmentsByStudent(studentID)
}

// ListForMentor sweeps the mentor's expired pending assignments, then returns
// all assignments the mentor has issued.
func (m *Manager) ListForMentor(mentorID int64) ([]model.Assignment, error) {
	if err := m.store.SweepOverdueForMentor(mentorID); err != nil {
		return nil, fmt.Errorf("overdue sweep: %w", err)
	}
	return m.store.ListAssignmentsByMentor(mentorID)
}

// Extend revives an assignment to pending with a new deadline, clearing any
// completion fields, and emits a deadline event addressed to the student.
func (m *Manager) Extend(id int64, newDeadline time.Time) (*model.Assignment, []model.Event, error) {
	a, err := m.store.ExtendAssignment(id, newDeadline)
	if err != nil {
		return nil, nil, err
	}
	ev := model.Event{
		Kind:          model.EventDeadlineExtended,
		RecipientID:   a.StudentID,
		RecipientKind: model.RecipientStudent,
		RelatedID:     &a.ID,
		Data:          map[string]any{"Deadline": newDeadline.Format("2006-01-02 15:04")},
	}
	return a, []model.Event{ev}, nil
}

// Cancel hard-deletes an assignment in any status. No transition is recorded
// and no notification is emitted.
func (m *Manager) Cancel(id int64) error {
	return m.store.DeleteAssignment(id)
}

// CompletionRate sweeps, then returns completed/total over the student's
// assignments as a rounded integer percent, 0 when the student has none.
func (m *Manager) CompletionRate(studentID int64) (int, error) {
	assignments, err := m.ListForStudent(studentID)
	if err != nil {
		return 0, err
	}
	return Rate(assignments), nil
}

// Rate computes the completed share of a set of assignments as a rounded
// integer percent.
func Rate(assignments []model.Assignment) int {
	if len(assignments) == 0 {
		return 0
	}
	completed := 0
	for _, a := range assignments {
		if a.Status == model.AssignmentCompleted {
			completed++
		}
	}
	return model.Percent(completed, len(assignments))
}
