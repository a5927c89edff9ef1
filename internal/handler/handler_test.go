package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/akosarev/mentorio/internal/i18n"
	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/notify"
	"github.com/akosarev/mentorio/internal/store"
)

func newTestRouter(t *testing.T) (chi.Router, *store.Store) {
	t.Helper()
	return newTestRouterLang(t, "en")
}

func newTestRouterLang(t *testing.T, lang string) (chi.Router, *store.Store) {
	t.Helper()
	if err := appI18n.Init(lang); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := New(s, notify.New(s, lang), false)
	r := chi.NewRouter()
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)
	return r, s
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func registerAndLogin(t *testing.T, r chi.Router, kind, login string) *http.Cookie {
	t.Helper()
	body := map[string]string{"login": login, "display_name": login, "password": "secret"}
	var registerPath, loginPath string
	if kind == "mentor" {
		registerPath, loginPath = "/mentors", "/login/mentor"
	} else {
		registerPath, loginPath = "/users", "/login/user"
	}
	if w := doJSON(t, r, http.MethodPost, registerPath, body, nil); w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", login, w.Code, w.Body.String())
	}
	w := doJSON(t, r, http.MethodPost, loginPath, map[string]string{"login": login, "password": "secret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", login, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func TestAuthFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	// Protected endpoints reject anonymous requests.
	if w := doJSON(t, r, http.MethodGet, "/users", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", w.Code)
	}

	// Register.
	w := doJSON(t, r, http.MethodPost, "/users", map[string]string{
		"login": "alice", "display_name": "Alice", "password": "secret",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}
	var created model.User
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.Login != "alice" {
		t.Errorf("expected login 'alice', got %q", created.Login)
	}

	// Duplicate login.
	w = doJSON(t, r, http.MethodPost, "/users", map[string]string{
		"login": "alice", "display_name": "Alice 2", "password": "secret",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate login, got %d", w.Code)
	}

	// Wrong password.
	w = doJSON(t, r, http.MethodPost, "/login/user", map[string]string{
		"login": "alice", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	// Correct login yields a working session.
	w = doJSON(t, r, http.MethodPost, "/login/user", map[string]string{
		"login": "alice", "password": "secret",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)

	if w := doJSON(t, r, http.MethodGet, "/users", nil, cookie); w.Code != http.StatusOK {
		t.Errorf("expected 200 with session, got %d", w.Code)
	}

	// Logout invalidates the session.
	if w := doJSON(t, r, http.MethodPost, "/logout", nil, cookie); w.Code != http.StatusNoContent {
		t.Errorf("logout: expected 204, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/users", nil, cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
}

func TestLoginErrorLocalized(t *testing.T) {
	r, _ := newTestRouterLang(t, "ru")

	body := map[string]string{"login": "alice", "display_name": "Alice", "password": "secret"}
	if w := doJSON(t, r, http.MethodPost, "/users", body, nil); w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodPost, "/login/user", map[string]string{
		"login": "alice", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if want := "Неверный логин или пароль"; resp.Error != want {
		t.Errorf("login error = %q, want %q", resp.Error, want)
	}
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	r, _ := newTestRouter(t)

	body := map[string]string{"login": "alice", "display_name": "Alice", "password": "secret"}
	w := doJSON(t, r, http.MethodPost, "/users", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}
	var created model.User
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	w = doJSON(t, r, http.MethodPost, "/login/user", map[string]string{"login": "alice", "password": "secret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)

	paths := []string{
		"/results",
		"/achievements",
		fmt.Sprintf("/students/%d/achievements", created.ID),
	}
	for _, p := range paths {
		w := doJSON(t, r, http.MethodGet, p, nil, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d: %s", p, w.Code, w.Body.String())
		}
		if got := strings.TrimSpace(w.Body.String()); got != "[]" {
			t.Errorf("GET %s body = %s, want []", p, got)
		}
	}

	// Evaluating achievements when none are defined awards an empty list.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/students/%d/achievements/check", created.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("check achievements: status %d: %s", w.Code, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("check achievements body = %s, want []", got)
	}
}

func TestSubmitResultEndpoint(t *testing.T) {
	r, s := newTestRouter(t)
	mentorCookie := registerAndLogin(t, r, "mentor", "mentor")
	studentCookie := registerAndLogin(t, r, "user", "alice")

	mentor, _ := s.GetMentorByLogin("mentor")
	student, _ := s.GetUserByLogin("alice")

	// Create a test worth 50 points.
	w := doJSON(t, r, http.MethodPost, "/tests", model.Test{
		MentorID: mentor.ID,
		Name:     "Basics",
		Questions: []model.Question{
			{Prompt: "q1", Answer: "a", Points: 25},
			{Prompt: "q2", Answer: "b", Points: 25},
		},
	}, mentorCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create test: status %d: %s", w.Code, w.Body.String())
	}
	var created model.Test
	json.NewDecoder(w.Body).Decode(&created)
	if created.MaxScore != 50 {
		t.Errorf("expected max score 50, got %d", created.MaxScore)
	}

	// Submit a result.
	w = doJSON(t, r, http.MethodPost, "/results", map[string]any{
		"student_id": student.ID, "test_id": created.ID, "score": 40,
	}, studentCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Result model.Result `json:"result"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Result.Percentage != 80 {
		t.Errorf("expected percentage 80, got %d", resp.Result.Percentage)
	}

	// Unknown test is 404.
	w = doJSON(t, r, http.MethodPost, "/results", map[string]any{
		"student_id": student.ID, "test_id": 9999, "score": 40,
	}, studentCookie)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown test, got %d", w.Code)
	}

	// A zero-point test cannot be scored.
	emptyID, err := s.CreateTest(model.Test{MentorID: mentor.ID, Name: "Empty"})
	if err != nil {
		t.Fatalf("CreateTest empty: %v", err)
	}
	w = doJSON(t, r, http.MethodPost, "/results", map[string]any{
		"student_id": student.ID, "test_id": emptyID, "score": 0,
	}, studentCookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for zero max score, got %d", w.Code)
	}
}

func TestAssignmentEndpoints(t *testing.T) {
	r, s := newTestRouter(t)
	mentorCookie := registerAndLogin(t, r, "mentor", "mentor")

	mentor, _ := s.GetMentorByLogin("mentor")
	registerAndLogin(t, r, "user", "alice")
	student, _ := s.GetUserByLogin("alice")

	testID, err := s.CreateTest(model.Test{
		MentorID:  mentor.ID,
		Name:      "Basics",
		Questions: []model.Question{{Prompt: "q", Answer: "a", Points: 10}},
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}

	body := map[string]any{
		"mentor_id":  mentor.ID,
		"student_id": student.ID,
		"test_id":    testID,
		"deadline":   time.Now().Add(24 * time.Hour),
	}
	w := doJSON(t, r, http.MethodPost, "/assignments", body, mentorCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create assignment: status %d: %s", w.Code, w.Body.String())
	}
	var a model.Assignment
	json.NewDecoder(w.Body).Decode(&a)

	// Duplicate pending assignment is a conflict.
	if w := doJSON(t, r, http.MethodPost, "/assignments", body, mentorCookie); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}

	// Extend notifies the student.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/assignments/%d/extend", a.ID), map[string]any{
		"deadline": time.Now().Add(72 * time.Hour),
	}, mentorCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("extend: status %d: %s", w.Code, w.Body.String())
	}

	studentCookie := func() *http.Cookie {
		w := doJSON(t, r, http.MethodPost, "/login/user", map[string]string{"login": "alice", "password": "secret"}, nil)
		return sessionCookie(t, w)
	}()
	w = doJSON(t, r, http.MethodGet, "/notifications", nil, studentCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("notifications: status %d", w.Code)
	}
	var notifResp struct {
		Notifications []model.Notification `json:"notifications"`
		Unread        int                  `json:"unread"`
	}
	json.NewDecoder(w.Body).Decode(&notifResp)
	if len(notifResp.Notifications) != 1 || notifResp.Unread != 1 {
		t.Fatalf("expected 1 unread notification, got %d/%d", len(notifResp.Notifications), notifResp.Unread)
	}
	if notifResp.Notifications[0].Category != model.CategoryDeadline {
		t.Errorf("expected deadline category, got %q", notifResp.Notifications[0].Category)
	}

	// Student assignment listing includes the completion rate.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/students/%d/assignments", student.ID), nil, studentCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("student assignments: status %d", w.Code)
	}
	var listResp struct {
		Assignments    []model.Assignment `json:"assignments"`
		CompletionRate int                `json:"completion_rate"`
	}
	json.NewDecoder(w.Body).Decode(&listResp)
	if len(listResp.Assignments) != 1 || listResp.CompletionRate != 0 {
		t.Errorf("expected 1 assignment rate 0, got %d/%d", len(listResp.Assignments), listResp.CompletionRate)
	}

	// Cancel.
	if w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/assignments/%d", a.ID), nil, mentorCookie); w.Code != http.StatusNoContent {
		t.Errorf("cancel: expected 204, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/assignments/%d", a.ID), nil, mentorCookie); w.Code != http.StatusNotFound {
		t.Errorf("cancel again: expected 404, got %d", w.Code)
	}
}

func TestCommentNotifiesStudent(t *testing.T) {
	r, s := newTestRouter(t)
	mentorCookie := registerAndLogin(t, r, "mentor", "mentor")
	studentCookie := registerAndLogin(t, r, "user", "alice")

	mentor, _ := s.GetMentorByLogin("mentor")
	student, _ := s.GetUserByLogin("alice")

	w := doJSON(t, r, http.MethodPost, "/comments", model.Comment{
		MentorID:  mentor.ID,
		StudentID: student.ID,
		Text:      "Keep it up",
	}, mentorCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create comment: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/notifications", nil, studentCookie)
	var resp struct {
		Notifications []model.Notification `json:"notifications"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(resp.Notifications))
	}
	if resp.Notifications[0].Category != model.CategorySystem {
		t.Errorf("expected system category, got %q", resp.Notifications[0].Category)
	}
}
