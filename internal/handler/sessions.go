package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/service"
)

// SessionsHandler — реестр сессий в кабинете декана. Все маршруты под RequireDean.
type SessionsHandler struct {
	svc *service.AuthService
}

func NewSessionsHandler(svc *service.AuthService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// List — все сессии (admin и dean), включая отозванные: история входов не удаляется.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSessions(r.Context())
	if err != nil {
		logger.Errorf("list sessions: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки сессий")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

// Revoke принудительно завершает сессию по id. kind берётся из query (?kind=admin|dean).
func (h *SessionsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	kind := model.SessionKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = model.SessionAdmin
	}
	if err := h.svc.RevokeSession(r.Context(), kind, sessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "Неизвестный вид сессии")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Сессия не найдена")
		default:
			logger.Errorf("revoke session: %v", err)
			writeError(w, http.StatusInternalServerError, "Ошибка отзыва сессии")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
