package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/ws"
)

// TimelineHandler — вехи истории ассоциации. Чтение публичное, запись — под сессией.
type TimelineHandler struct {
	repo *repository.TimelineRepository
	hub  *ws.Hub
}

func NewTimelineHandler(repo *repository.TimelineRepository, hub *ws.Hub) *TimelineHandler {
	return &TimelineHandler{repo: repo, hub: hub}
}

func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		logger.Errorf("timeline list: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки таймлайна")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"milestones": list})
}

type milestoneRequest struct {
	Year      int    `json:"year"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SortOrder int    `json:"sort_order"`
}

func (h *TimelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Year == 0 || req.Title == "" {
		writeError(w, http.StatusBadRequest, "Год и заголовок обязательны")
		return
	}
	m := &model.Milestone{
		ID:        uuid.New().String(),
		Year:      req.Year,
		Title:     req.Title,
		Body:      req.Body,
		SortOrder: req.SortOrder,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), m); err != nil {
		logger.Errorf("milestone create: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить веху")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusCreated, m)
}

func (h *TimelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m := &model.Milestone{
		ID:        chi.URLParam(r, "id"),
		Year:      req.Year,
		Title:     req.Title,
		Body:      req.Body,
		SortOrder: req.SortOrder,
	}
	if err := h.repo.Update(r.Context(), m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Веха не найдена")
			return
		}
		logger.Errorf("milestone update: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить веху")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusOK, m)
}

func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Веха не найдена")
			return
		}
		logger.Errorf("milestone delete: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить веху")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TimelineHandler) broadcast() {
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventTimelineChanged})
	}
}
