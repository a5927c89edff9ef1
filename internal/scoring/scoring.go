// Package scoring turns raw test scores into immutable results and keeps the
// student's denormalized aggregates consistent with them.
package scoring

import (
	"fmt"
	"sync"

	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

// Engine records test submissions. Submissions for the same student are
// serialized by a per-student mutex so concurrent submissions cannot lose an
// aggregate update.
type Engine struct {
	store *store.Store

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a scoring engine over the given store.
func New(s *store.Store) *Engine {
	return &Engine{store: s, locks: make(map[int64]*sync.Mutex)}
}

func (e *Engine) studentLock(studentID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[studentID] = l
	}
	return l
}

// SubmitResult validates a submission, computes its percentage and records it
// with the full cascade: result persisted, student aggregates recomputed, best
// matching open assignment completed. Returns the stored result and the
// completed assignment, if any. Achievement checks are not chained here;
// callers invoke the evaluator explicitly.
//
// Not idempotent: resubmitting the same attempt double-counts the score.
func (e *Engine) SubmitResult(studentID int64, mentorID *int64, testID int64, rawScore int) (model.Result, *model.Assignment, error) {
	user, err := e.store.GetUserByID(studentID)
	if err != nil {
		return model.Result{}, nil, fmt.Errorf("look up student: %w", err)
	}
	if user == nil {
		return model.Result{}, nil, model.NotFound("user", studentID)
	}

	test, err := e.store.GetTest(testID)
	if err != nil {
		return model.Result{}, nil, fmt.Errorf("look up test: %w", err)
	}
	if test == nil {
		return model.Result{}, nil, model.NotFound("test", testID)
	}
	// The stored max score is used even if the test's questions were edited
	// after creation.
	if test.MaxScore <= 0 {
		return model.Result{}, nil, fmt.Errorf("test %d has max score %d: %w", testID, test.MaxScore, model.ErrInvalidTest)
	}

	r := model.Result{
		StudentID:  studentID,
		MentorID:   mentorID,
		TestID:     testID,
		Score:      rawScore,
		MaxScore:   test.MaxScore,
		Percentage: model.Percent(rawScore, test.MaxScore),
	}

	l := e.studentLock(studentID)
	l.Lock()
	defer l.Unlock()

	return e.store.RecordSubmission(r)
}

// DeleteResult hard-deletes a result. The student's cached aggregates are not
// touched; the next submission's recompute drops the deleted result out.
func (e *Engine) DeleteResult(id int64) error {
	return e.store.DeleteResult(id)
}
