// Package analytics builds read-only cross-entity reports over accumulated
// results, assignments and achievements.
package analytics

import (
	"fmt"
	"sort"

	"github.com/akosarev/mentorio/internal/assignment"
	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

// Aggregator produces student, mentor and system reports. Assignment data is
// read through the lifecycle manager so the lazy overdue sweep runs before
// any derived stat is computed.
type Aggregator struct {
	store       *store.Store
	assignments *assignment.Manager
}

// New creates an aggregator.
func New(s *store.Store, m *assignment.Manager) *Aggregator {
	return &Aggregator{store: s, assignments: m}
}

// StudentReport builds the per-student view: per-test breakdown grouped by
// test name, chronological progress series, and assignment status counts.
func (ag *Aggregator) StudentReport(studentID int64) (*model.StudentReport, error) {
	user, err := ag.store.GetUserByID(studentID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NotFound("user", studentID)
	}

	results, err := ag.store.ListResultsByStudent(studentID)
	if err != nil {
		return nil, err
	}
	names, err := ag.testNames()
	if err != nil {
		return nil, err
	}

	// Group results by test name. Results are already in submission order, so
	// the progress series comes out sorted by timestamp ascending.
	type acc struct {
		attempts int
		total    int
		best     int
		pcts     []int
	}
	groups := make(map[string]*acc)
	var order []string
	progress := []model.ProgressPoint{}
	for _, r := range results {
		name := names[r.TestID]
		if name == "" {
			name = fmt.Sprintf("test %d", r.TestID)
		}
		g, ok := groups[name]
		if !ok {
			g = &acc{}
			groups[name] = g
			order = append(order, name)
		}
		g.attempts++
		g.total += r.Score
		if r.Percentage > g.best {
			g.best = r.Percentage
		}
		g.pcts = append(g.pcts, r.Percentage)

		progress = append(progress, model.ProgressPoint{
			At:         r.CreatedAt,
			TestName:   name,
			Percentage: r.Percentage,
		})
	}

	tests := []model.TestBreakdown{}
	for _, name := range order {
		g := groups[name]
		tests = append(tests, model.TestBreakdown{
			TestName:          name,
			Attempts:          g.attempts,
			TotalScore:        g.total,
			BestPercentage:    g.best,
			AveragePercentage: model.RoundedMean(g.pcts),
		})
	}

	assignments, err := ag.assignments.ListForStudent(studentID)
	if err != nil {
		return nil, err
	}
	var counts model.AssignmentCounts
	counts.Total = len(assignments)
	for _, a := range assignments {
		switch a.Status {
		case model.AssignmentPending:
			counts.Pending++
		case model.AssignmentCompleted:
			counts.Completed++
		case model.AssignmentOverdue:
			counts.Overdue++
		}
	}

	return &model.StudentReport{
		StudentID:   user.ID,
		DisplayName: user.DisplayName,
		TotalScore:  user.TotalScore,
		SuccessRate: user.SuccessRate,
		Tests:       tests,
		Progress:    progress,
		Assignments: counts,
	}, nil
}

// MentorReport recomputes completion and average stats for every student the
// mentor has assigned work to. The mentor-wide average is the mean of the
// per-student averages, not a weighted mean over all results.
func (ag *Aggregator) MentorReport(mentorID int64) (*model.MentorReport, error) {
	mentor, err := ag.store.GetMentorByID(mentorID)
	if err != nil {
		return nil, err
	}
	if mentor == nil {
		return nil, model.NotFound("mentor", mentorID)
	}

	assignments, err := ag.assignments.ListForMentor(mentorID)
	if err != nil {
		return nil, err
	}

	perStudent := make(map[int64][]model.Assignment)
	var studentIDs []int64
	for _, a := range assignments {
		if _, ok := perStudent[a.StudentID]; !ok {
			studentIDs = append(studentIDs, a.StudentID)
		}
		perStudent[a.StudentID] = append(perStudent[a.StudentID], a)
	}
	sort.Slice(studentIDs, func(i, j int) bool { return studentIDs[i] < studentIDs[j] })

	students := []model.MentorStudentStats{}
	totalCompleted := 0
	var studentAverages []int
	for _, sid := range studentIDs {
		as := perStudent[sid]
		completed, onTime := 0, 0
		for _, a := range as {
			if a.Status == model.AssignmentCompleted {
				completed++
				if a.OnTime() {
					onTime++
				}
			}
		}
		totalCompleted += completed

		results, err := ag.store.ListResultsByStudent(sid)
		if err != nil {
			return nil, err
		}
		pcts := make([]int, 0, len(results))
		for _, r := range results {
			pcts = append(pcts, r.Percentage)
		}
		avg := model.RoundedMean(pcts)
		studentAverages = append(studentAverages, avg)

		name := ""
		if u, err := ag.store.GetUserByID(sid); err != nil {
			return nil, err
		} else if u != nil {
			name = u.DisplayName
		}

		students = append(students, model.MentorStudentStats{
			StudentID:         sid,
			DisplayName:       name,
			Assigned:          len(as),
			Completed:         completed,
			OnTime:            onTime,
			CompletionRate:    model.Percent(completed, len(as)),
			AveragePercentage: avg,
		})
	}

	completionRate := 0
	if len(assignments) > 0 {
		completionRate = model.Percent(totalCompleted, len(assignments))
	}

	return &model.MentorReport{
		MentorID:          mentor.ID,
		DisplayName:       mentor.DisplayName,
		Students:          students,
		CompletionRate:    completionRate,
		AveragePercentage: model.RoundedMean(studentAverages),
	}, nil
}

// SystemReport builds global counts, the rounded mean of every result
// percentage, and the top-10 leaderboard by total score.
func (ag *Aggregator) SystemReport() (*model.SystemReport, error) {
	report := &model.SystemReport{}
	var err error
	if report.Students, err = ag.store.UserCount(); err != nil {
		return nil, err
	}
	if report.Mentors, err = ag.store.MentorCount(); err != nil {
		return nil, err
	}
	if report.Tests, err = ag.store.TestCount(); err != nil {
		return nil, err
	}
	if report.Results, err = ag.store.ResultCount(); err != nil {
		return nil, err
	}
	if report.Assignments, err = ag.store.AssignmentCount(); err != nil {
		return nil, err
	}

	results, err := ag.store.ListResults()
	if err != nil {
		return nil, err
	}
	pcts := make([]int, 0, len(results))
	for _, r := range results {
		pcts = append(pcts, r.Percentage)
	}
	report.AveragePercentage = model.RoundedMean(pcts)

	top, err := ag.store.TopUsersByScore(10)
	if err != nil {
		return nil, err
	}
	for i, u := range top {
		report.Leaderboard = append(report.Leaderboard, model.LeaderboardEntry{
			Rank:        i + 1,
			StudentID:   u.ID,
			DisplayName: u.DisplayName,
			TotalScore:  u.TotalScore,
		})
	}
	return report, nil
}

func (ag *Aggregator) testNames() (map[int64]string, error) {
	tests, err := ag.store.ListTests(0)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(tests))
	for _, t := range tests {
		names[t.ID] = t.Name
	}
	return names, nil
}
