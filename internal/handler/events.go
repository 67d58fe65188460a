package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/push"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/ws"
)

// EventsHandler — мероприятия ассоциации. Чтение публичное, запись — под сессией.
type EventsHandler struct {
	repo     *repository.EventRepository
	hub      *ws.Hub
	notifier *push.Notifier
}

func NewEventsHandler(repo *repository.EventRepository, hub *ws.Hub, notifier *push.Notifier) *EventsHandler {
	return &EventsHandler{repo: repo, hub: hub, notifier: notifier}
}

// List: по умолчанию только предстоящие; ?all=1 — включая прошедшие (архив).
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	upcomingOnly := r.URL.Query().Get("all") == ""
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := h.repo.List(r.Context(), upcomingOnly, limit)
	if err != nil {
		logger.Errorf("events list: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки мероприятий")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Мероприятие не найдено")
			return
		}
		logger.Errorf("event get: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки мероприятия")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	ImageURL    string     `json:"image_url"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.StartsAt.IsZero() {
		writeError(w, http.StatusBadRequest, "Название и дата начала обязательны")
		return
	}
	now := time.Now().UTC()
	e := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedBy:   currentRole(r),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.repo.Create(r.Context(), e); err != nil {
		logger.Errorf("event create: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить мероприятие")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventEventCreated, Payload: e})
	}
	if h.notifier != nil {
		go h.notifier.Broadcast(context.Background(), push.Payload{
			Title: "Новое мероприятие: " + e.Title,
			Body:  e.Location,
			Data:  map[string]string{"event_id": e.ID},
		})
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Мероприятие не найдено")
			return
		}
		logger.Errorf("event update load: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки мероприятия")
		return
	}
	e.Title = req.Title
	e.Description = req.Description
	e.Location = req.Location
	e.ImageURL = req.ImageURL
	e.StartsAt = req.StartsAt
	e.EndsAt = req.EndsAt
	e.UpdatedAt = time.Now().UTC()
	if err := h.repo.Update(r.Context(), e); err != nil {
		logger.Errorf("event update: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить мероприятие")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventEventUpdated, Payload: e})
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Мероприятие не найдено")
			return
		}
		logger.Errorf("event delete: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить мероприятие")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventEventDeleted, Payload: ws.DeletedPayload{ID: id}})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
