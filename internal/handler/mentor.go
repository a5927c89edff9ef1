package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akosarev/mentorio/internal/model"
)

// mentorRoutes registers test, comment, learning path and study material
// endpoints.
func (h *Handler) mentorRoutes(r chi.Router) {
	r.Post("/tests", h.handleCreateTest)
	r.Get("/tests", h.handleListTests)
	r.Get("/tests/{id}", h.handleGetTest)
	r.Delete("/tests/{id}", h.handleDeleteTest)

	r.Post("/comments", h.handleCreateComment)
	r.Get("/students/{id}/comments", h.handleStudentComments)

	r.Post("/paths", h.handleCreatePath)
	r.Post("/paths/{id}/assign", h.handleAssignPath)
	r.Post("/paths/assignments/{id}/complete", h.handleCompletePathAssignment)
	r.Get("/students/{id}/paths", h.handleStudentPaths)

	r.Post("/materials", h.handleCreateMaterial)
	r.Get("/materials", h.handleListMaterials)
	r.Delete("/materials/{id}", h.handleDeleteMaterial)
}

func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var t model.Test
	if err := decodeJSON(r, &t); err != nil || t.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	id, err := h.store.CreateTest(t)
	if err != nil {
		respondError(w, err)
		return
	}
	created, err := h.store.GetTest(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	var mentorID int64
	if mid := r.URL.Query().Get("mentor_id"); mid != "" {
		var err error
		if mentorID, err = strconv.ParseInt(mid, 10, 64); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mentor_id"})
			return
		}
	}
	tests, err := h.store.ListTests(mentorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid test ID"})
		return
	}
	test, err := h.store.GetTest(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if test == nil {
		respondError(w, model.NotFound("test", id))
		return
	}
	respondJSON(w, http.StatusOK, test)
}

func (h *Handler) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid test ID"})
		return
	}
	if err := h.store.DeleteTest(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var c model.Comment
	if err := decodeJSON(r, &c); err != nil || c.Text == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	mentor, err := h.store.GetMentorByID(c.MentorID)
	if err != nil {
		respondError(w, err)
		return
	}
	if mentor == nil {
		respondError(w, model.NotFound("mentor", c.MentorID))
		return
	}
	if user, err := h.store.GetUserByID(c.StudentID); err != nil {
		respondError(w, err)
		return
	} else if user == nil {
		respondError(w, model.NotFound("user", c.StudentID))
		return
	}

	id, err := h.store.CreateComment(c)
	if err != nil {
		respondError(w, err)
		return
	}
	c.ID = id
	if _, err := h.notifier.Dispatch([]model.Event{{
		Kind:          model.EventCommentAdded,
		RecipientID:   c.StudentID,
		RecipientKind: model.RecipientStudent,
		RelatedID:     &id,
		Data:          map[string]any{"MentorName": mentor.DisplayName},
	}}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleStudentComments(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	comments, err := h.store.ListCommentsByStudent(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

func (h *Handler) handleCreatePath(w http.ResponseWriter, r *http.Request) {
	var p model.LearningPath
	if err := decodeJSON(r, &p); err != nil || p.Title == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	id, err := h.store.CreateLearningPath(p)
	if err != nil {
		respondError(w, err)
		return
	}
	created, err := h.store.GetLearningPath(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleAssignPath(w http.ResponseWriter, r *http.Request) {
	pathID, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid path ID"})
		return
	}
	var req struct {
		StudentID int64 `json:"student_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	path, err := h.store.GetLearningPath(pathID)
	if err != nil {
		respondError(w, err)
		return
	}
	if path == nil {
		respondError(w, model.NotFound("learning path", pathID))
		return
	}
	if user, err := h.store.GetUserByID(req.StudentID); err != nil {
		respondError(w, err)
		return
	} else if user == nil {
		respondError(w, model.NotFound("user", req.StudentID))
		return
	}

	id, err := h.store.AssignPath(pathID, req.StudentID)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.notifier.Dispatch([]model.Event{{
		Kind:          model.EventPathAssigned,
		RecipientID:   req.StudentID,
		RecipientKind: model.RecipientStudent,
		RelatedID:     &pathID,
		Data:          map[string]any{"Title": path.Title},
	}}); err != nil {
		respondError(w, err)
		return
	}
	pa, err := h.store.GetPathAssignment(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pa)
}

func (h *Handler) handleCompletePathAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid path assignment ID"})
		return
	}
	pa, err := h.store.CompletePathAssignment(id)
	if err != nil {
		respondError(w, err)
		return
	}
	path, err := h.store.GetLearningPath(pa.PathID)
	if err != nil {
		respondError(w, err)
		return
	}
	title := ""
	if path != nil {
		title = path.Title
	}
	if _, err := h.notifier.Dispatch([]model.Event{{
		Kind:          model.EventPathCompleted,
		RecipientID:   pa.StudentID,
		RecipientKind: model.RecipientStudent,
		RelatedID:     &pa.PathID,
		Data:          map[string]any{"Title": title},
	}}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pa)
}

func (h *Handler) handleStudentPaths(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student ID"})
		return
	}
	assignments, err := h.store.ListPathAssignmentsByStudent(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assignments)
}

func (h *Handler) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var m model.StudyMaterial
	if err := decodeJSON(r, &m); err != nil || m.Title == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	id, err := h.store.CreateStudyMaterial(m)
	if err != nil {
		respondError(w, err)
		return
	}
	m.ID = id
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	mid, err := strconv.ParseInt(r.URL.Query().Get("mentor_id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mentor_id"})
		return
	}
	materials, err := h.store.ListStudyMaterialsByMentor(mid)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, materials)
}

func (h *Handler) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid material ID"})
		return
	}
	if err := h.store.DeleteStudyMaterial(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
