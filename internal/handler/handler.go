package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akosarev/mentorio/internal/achievement"
	"github.com/akosarev/mentorio/internal/analytics"
	"github.com/akosarev/mentorio/internal/assignment"
	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/notify"
	"github.com/akosarev/mentorio/internal/scoring"
	"github.com/akosarev/mentorio/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store         *store.Store
	scoring       *scoring.Engine
	assignments   *assignment.Manager
	achievements  *achievement.Evaluator
	notifier      *notify.Emitter
	analytics     *analytics.Aggregator
	secureCookies bool
}

// New creates a new Handler.
func New(s *store.Store, notifier *notify.Emitter, secureCookies bool) *Handler {
	assignments := assignment.New(s)
	return &Handler{
		store:         s,
		scoring:       scoring.New(s),
		assignments:   assignments,
		achievements:  achievement.New(s),
		notifier:      notifier,
		analytics:     analytics.New(s, assignments),
		secureCookies: secureCookies,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login/user", h.handleLoginUser)
	r.Post("/login/mentor", h.handleLoginMentor)
	r.Post("/logout", h.handleLogout)
	r.Post("/users", h.handleCreateUser)
	r.Post("/mentors", h.handleCreateMentor)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/users", h.handleListUsers)
		r.Get("/mentors", h.handleListMentors)

		r.Post("/results", h.handleSubmitResult)
		r.Get("/results", h.handleListResults)
		r.Delete("/results/{id}", h.handleDeleteResult)

		r.Post("/assignments", h.handleCreateAssignment)
		r.Get("/students/{id}/assignments", h.handleStudentAssignments)
		r.Get("/mentors/{id}/assignments", h.handleMentorAssignments)
		r.Post("/assignments/{id}/extend", h.handleExtendAssignment)
		r.Delete("/assignments/{id}", h.handleCancelAssignment)

		r.Post("/achievements", h.handleCreateAchievement)
		r.Get("/achievements", h.handleListAchievements)
		r.Post("/students/{id}/achievements/check", h.handleCheckAchievements)
		r.Get("/students/{id}/achievements", h.handleStudentAchievements)

		r.Get("/notifications", h.handleListNotifications)
		r.Post("/notifications/{id}/read", h.handleMarkNotificationRead)
		r.Post("/notifications/read-all", h.handleMarkAllNotificationsRead)

		r.Get("/reports/students/{id}", h.handleStudentReport)
		r.Get("/reports/mentors/{id}", h.handleMentorReport)
		r.Get("/reports/system", h.handleSystemReport)

		h.mentorRoutes(r)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case model.IsNotFound(err):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrInvalidTest):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrUnauthenticated):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		slog.Error("internal error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func urlID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleListMentors(w http.ResponseWriter, r *http.Request) {
	mentors, err := h.store.ListMentors()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mentors)
}

func (h *Handler) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID int64  `json:"student_id"`
		MentorID  *int64 `json:"mentor_id"`
		TestID    int64  `json:"test_id"`
		Score     int    `json:"score"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, completed, err := h.scoring.SubmitResult(req.StudentID, req.MentorID, req.TestID, req.Score)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, struct {
		Result     model.Result      `json:"result"`
		Assignment *model.Assignment `json:"assignment,omitempty"`
	}{result, completed})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	if sid := r.URL.Query().Get("student_id"); sid != "" {
		id, err := strconv.ParseInt(sid, 10, 64)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student_id"})
			return
		}
		results, err := h.store.ListResultsByStudent(id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, results)
		return
	}
	results, err := h.store.ListResults()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid result ID"})
		return
	}
	if err := h.scoring.DeleteResult(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MentorID  int64     `json:"mentor_id"`
		StudentID int64     `json:"student_id"`
		TestID    int64     `json:"test_id"`
		Deadline  time.Time `json:"deadline"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	a, err := h.assignments.Create(req.MentorID, req.StudentID, req.TestID, req.Deadline)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleStudentAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	assignments, err := h.assignments.ListForStudent(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Assignments    []model.Assignment `json:"assignments"`
		CompletionRate int                `json:"completion_rate"`
	}{assignments, assignment.Rate(assignments)})
}

func (h *Handler) handleMentorAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mentor ID"})
		return
	}
	assignments, err := h.assignments.ListForMentor(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assignments)
}

func (h *Handler) handleExtendAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid assignment ID"})
		return
	}
	var req struct {
		Deadline time.Time `json:"deadline"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	a, events, err := h.assignments.Extend(id, req.Deadline)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.notifier.Dispatch(events); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handler) handleCancelAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid assignment ID"})
		return
	}
	if err := h.assignments.Cancel(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateAchievement(w http.ResponseWriter, r *http.Request) {
	var a model.Achievement
	if err := decodeJSON(r, &a); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	id, err := h.store.CreateAchievement(a)
	if err != nil {
		respondError(w, err)
		return
	}
	created, err := h.store.GetAchievement(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.store.ListAchievements()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, achievements)
}

func (h *Handler) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	awarded, events, err := h.achievements.Check(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.notifier.Dispatch(events); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, awarded)
}

func (h *Handler) handleStudentAchievements(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	earned, err := h.store.ListStudentAchievements(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, earned)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := model.PrincipalFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	notifications, unread, err := h.notifier.ListForRecipient(p.ID, p.Kind)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Notifications []model.Notification `json:"notifications"`
		Unread        int                  `json:"unread"`
	}{notifications, unread})
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, ok := model.PrincipalFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	if err := h.notifier.MarkRead(chi.URLParam(r, "id"), p.ID, p.Kind); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	p, ok := model.PrincipalFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	if err := h.notifier.MarkAllRead(p.ID, p.Kind); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	report, err := h.analytics.StudentReport(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleMentorReport(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mentor ID"})
		return
	}
	report, err := h.analytics.MentorReport(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleSystemReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.SystemReport()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
