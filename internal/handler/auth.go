package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/akosarev/mentorio/internal/i18n"
	"github.com/akosarev/mentorio/internal/model"
)

const sessionCookieName = "session"

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// requireAuth is middleware that resolves the session cookie to a principal.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		sess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		if sess == nil {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		ctx := model.ContextWithPrincipal(r.Context(), model.Principal{
			ID:   sess.PrincipalID,
			Kind: sess.PrincipalKind,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.GetUserByLogin(creds.Login)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		h.respondLoginError(w, r)
		return
	}

	if err := h.setSessionCookie(w, user.ID, model.RecipientStudent); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLoginMentor(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	mentor, err := h.store.GetMentorByLogin(creds.Login)
	if err != nil {
		respondError(w, err)
		return
	}
	if mentor == nil || bcrypt.CompareHashAndPassword([]byte(mentor.PasswordHash), []byte(creds.Password)) != nil {
		h.respondLoginError(w, r)
		return
	}

	if err := h.setSessionCookie(w, mentor.ID, model.RecipientMentor); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mentor)
}

// respondLoginError answers a credential mismatch. A normal failure value,
// not logged as an error.
func (h *Handler) respondLoginError(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, errorResponse{Error: appI18n.T(r.Context(), "LoginError")})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, principalID int64, kind model.RecipientKind) error {
	token, err := h.store.CreateAuthSession(principalID, kind)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
	return nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Login == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, err)
		return
	}
	id, err := h.store.CreateUser(model.User{
		Login:        req.Login,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleCreateMentor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Login == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, err)
		return
	}
	id, err := h.store.CreateMentor(model.Mentor{
		Login:        req.Login,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	mentor, err := h.store.GetMentorByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, mentor)
}
